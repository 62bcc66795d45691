package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/crime-watch/internal/dashboard"
	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	snap := s.dash.Snapshot()
	writeJSON(w, http.StatusOK, dashboardResponse{Snapshot: snap, Criteria: newFilterBody(snap.Criteria)})
}

func (s *Server) handleKPIs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.KPIs())
}

func (s *Server) handleStatusBreakdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.StatusBreakdown(s.dash.Filtered()))
}

func (s *Server) handleTrend(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.DailyTrend(s.dash.Filtered()))
}

func (s *Server) handleTimeOfDay(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.TimeOfDay(s.dash.Filtered()))
}

func (s *Server) handleIncidentTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.IncidentTypeCounts(s.dash.Filtered()))
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.MapView())
}

func (s *Server) handleVocabulary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vocabulary{
		IncidentTypes: nonNil(s.dash.IncidentTypes()),
		Statuses:      s.dash.Statuses(),
		Categories:    domain.Categories(),
	})
}

// handleReports lists table rows. Query filters, when present, replace the
// applied filters for this request only.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	c, ok, err := criteriaFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		c = s.dash.Filters().Applied()
	} else if err := s.dash.ValidateCriteria(c); err != nil {
		s.writeError(w, err)
		return
	}

	all := s.dash.Reports()
	filtered := c.Apply(all)
	writeJSON(w, http.StatusOK, reportsResponse{
		Total:   len(all),
		Count:   len(filtered),
		Reports: dashboard.Rows(filtered),
		Filter:  newFilterBody(c),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	detail, err := s.dash.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[statusRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.dash.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Load(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Count: len(s.dash.Reports()), LoadedAt: s.dash.Now()})
}

func (s *Server) handleGetFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.filterState())
}

// handlePutFilters replaces the draft. The applied filters change only on apply.
func (s *Server) handlePutFilters(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[filterBody](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c := req.criteria()
	if err := s.dash.ValidateCriteria(c); err != nil {
		s.writeError(w, err)
		return
	}
	s.dash.Filters().SetDraft(c)
	writeJSON(w, http.StatusOK, s.filterState())
}

func (s *Server) handleApplyFilters(w http.ResponseWriter, _ *http.Request) {
	s.dash.Filters().Apply()
	writeJSON(w, http.StatusOK, s.filterState())
}

func (s *Server) handleResetFilters(w http.ResponseWriter, _ *http.Request) {
	s.dash.Filters().Reset()
	writeJSON(w, http.StatusOK, s.filterState())
}

func (s *Server) filterState() filterState {
	f := s.dash.Filters()
	return filterState{
		Draft:   newFilterBody(f.Draft()),
		Applied: newFilterBody(f.Applied()),
		Apply:   f.IsApplied(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain and transport errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrInvalidStatus):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrReportNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dashboard.ErrLoadFailed):
		status = http.StatusBadGateway
		msg = dashboard.ErrLoadFailed.Error()
	default:
		s.logger.Error("unhandled request error", "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
