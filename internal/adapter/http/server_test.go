package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/crime-watch/internal/adapter/http"
	"github.com/couchcryptid/crime-watch/internal/dashboard"
	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/couchcryptid/crime-watch/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	reports []domain.CrimeReport
	err     error
}

func (s *stubFetcher) FetchReports(context.Context) ([]domain.CrimeReport, error) {
	return s.reports, s.err
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

var now = time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC)

func report(id, incidentType, date, status string) domain.CrimeReport {
	return domain.CrimeReport{
		ID:               id,
		IncidentType:     incidentType,
		IncidentSeverity: "Medium",
		Date:             date,
		Time:             "08:30:00",
		Status:           status,
		Location:         domain.NewPoint(22.30, 70.80),
		CreatedAt:        date + "T08:35:00Z",
	}
}

type harness struct {
	srv     *httpadapter.Server
	fetcher *stubFetcher
	dash    *dashboard.Dashboard
	metrics *observability.Metrics
}

func newHarness(t *testing.T, readyErr error) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	fetcher := &stubFetcher{reports: []domain.CrimeReport{
		report("CR-1", "Theft", "2024-04-26", domain.StatusNew),
		report("CR-2", "Assault", "2024-04-22", domain.StatusUnderInvestigation),
		report("CR-3", "Theft", "2024-04-02", domain.StatusResolved),
	}}
	dash := dashboard.New(dashboard.Options{
		Fetcher: fetcher,
		Clock:   clockwork.NewFakeClockAt(now),
		Metrics: metrics,
		Logger:  logger,
	})
	require.NoError(t, dash.Load(context.Background()))

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           ":0",
		AllowedOrigins: []string{"https://dashboard.example"},
		Dashboard:      dash,
		Ready:          &mockReadiness{err: readyErr},
		Metrics:        metrics,
		Logger:         logger,
	})
	return &harness{srv: srv, fetcher: fetcher, dash: dash, metrics: metrics}
}

func (h *harness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestHealthzReturns200(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	h := newHarness(t, fmt.Errorf("not ready yet"))
	rec := h.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDashboardSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	snap := decode[dashboard.Snapshot](t, rec)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 3, snap.Filtered)
	assert.Equal(t, 1, snap.KPIs.Today)
	assert.Equal(t, 2, snap.KPIs.LastWeek)
	assert.Equal(t, 3, snap.KPIs.LastMonth)
	assert.Equal(t, "Theft", snap.KPIs.MostFrequentType)
	assert.Len(t, snap.Rows, 3)
	assert.Len(t, snap.Map.Markers, 3)
}

func TestChartsAndKPIEndpoints(t *testing.T) {
	h := newHarness(t, nil)

	kpis := decode[domain.KPIs](t, h.do(t, http.MethodGet, "/api/v1/kpis", ""))
	assert.Equal(t, 1, kpis.Today)

	breakdown := decode[[]domain.StatusCount](t, h.do(t, http.MethodGet, "/api/v1/status-breakdown", ""))
	require.Len(t, breakdown, 4)
	assert.Equal(t, domain.StatusNew, breakdown[0].Status)
	assert.Equal(t, 1, breakdown[0].Count)

	trend := decode[[]domain.TrendPoint](t, h.do(t, http.MethodGet, "/api/v1/charts/trend", ""))
	assert.NotEmpty(t, trend)

	tod := decode[domain.TimeOfDayDistribution](t, h.do(t, http.MethodGet, "/api/v1/charts/time-of-day", ""))
	assert.Len(t, tod.Hours, 24)

	types := decode[[]domain.TypeCount](t, h.do(t, http.MethodGet, "/api/v1/charts/incident-types", ""))
	require.Len(t, types, 2)
	assert.Equal(t, "Theft", types[0].IncidentType)
	assert.Equal(t, 2, types[0].Count)

	view := decode[domain.MapView](t, h.do(t, http.MethodGet, "/api/v1/map", ""))
	assert.Len(t, view.Markers, 3)
	assert.Equal(t, 14, view.Zoom)
}

func TestVocabulary(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/api/v1/vocabulary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var v struct {
		IncidentTypes []string          `json:"incident_types"`
		Statuses      []string          `json:"statuses"`
		Categories    []domain.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, []string{"Theft", "Assault"}, v.IncidentTypes)
	assert.Equal(t, domain.Statuses(), v.Statuses)
	assert.Len(t, v.Categories, 5)
}

type reportsBody struct {
	Total   int             `json:"total"`
	Count   int             `json:"count"`
	Reports []dashboard.Row `json:"reports"`
}

func TestListReports(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"no filter", "", []string{"CR-1", "CR-2", "CR-3"}},
		{"by type", "?type=Theft", []string{"CR-1", "CR-3"}},
		{"by status list", "?status=New,Resolved", []string{"CR-1", "CR-3"}},
		{"repeated status", "?status=New&status=Under%20Investigation", []string{"CR-1", "CR-2"}},
		{"inclusive date range", "?start=2024-04-22&end=2024-04-26", []string{"CR-1", "CR-2"}},
		{"single-ended range ignored", "?start=2024-04-25", []string{"CR-1", "CR-2", "CR-3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/api/v1/reports"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decode[reportsBody](t, rec)
			assert.Equal(t, 3, body.Total)
			assert.Equal(t, len(tt.wantIDs), body.Count)
			got := make([]string, 0, len(body.Reports))
			for _, r := range body.Reports {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}
}

func TestListReports_InvalidQuery(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"bad date", "?start=26/04/2024&end=2024-04-30", "start"},
		{"unknown status", "?status=Closed", "statuses"},
		{"unknown type", "?type=Arson", "Arson"},
		{"inverted range", "?start=2024-04-26&end=2024-04-01", "after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/api/v1/reports"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorOf(t, rec), tt.wantErr)
		})
	}
}

func TestGetReport(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/v1/reports/CR-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[domain.ReportDetail](t, rec)
	assert.Equal(t, "CR-2", detail.ID)
	assert.Equal(t, domain.CategoryViolent, detail.Category)

	rec = h.do(t, http.MethodGet, "/api/v1/reports/CR-404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, errorOf(t, rec), "CR-404")
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPatch, "/api/v1/reports/CR-1/status", `{"status":"Under Investigation"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.CrimeReport](t, rec)
	assert.Equal(t, domain.StatusUnderInvestigation, updated.Status)
	assert.Equal(t, domain.StatusUnderInvestigation, h.dash.Reports()[0].Status)

	tests := []struct {
		name     string
		target   string
		body     string
		wantCode int
	}{
		{"unknown status", "/api/v1/reports/CR-1/status", `{"status":"Closed"}`, http.StatusBadRequest},
		{"missing status", "/api/v1/reports/CR-1/status", `{}`, http.StatusBadRequest},
		{"unknown field", "/api/v1/reports/CR-1/status", `{"state":"New"}`, http.StatusBadRequest},
		{"malformed", "/api/v1/reports/CR-1/status", `{"status":`, http.StatusBadRequest},
		{"empty body", "/api/v1/reports/CR-1/status", "", http.StatusBadRequest},
		{"unknown report", "/api/v1/reports/CR-404/status", `{"status":"Resolved"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPatch, tt.target, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.NotEmpty(t, errorOf(t, rec))
		})
	}
}

func TestReload(t *testing.T) {
	h := newHarness(t, nil)

	h.fetcher.reports = append(h.fetcher.reports, report("CR-4", "Vandalism", "2024-04-25", domain.StatusNew))
	rec := h.do(t, http.MethodPost, "/api/v1/reports/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 4, decode[map[string]any](t, rec)["count"], 0)

	h.fetcher.err = errors.New("dial tcp: connection refused")
	rec = h.do(t, http.MethodPost, "/api/v1/reports/reload", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to load crime report data", errorOf(t, rec))
	assert.Len(t, h.dash.Reports(), 4)
}

func TestFilterLifecycle(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPut, "/api/v1/filters", `{"incident_types":["Theft"],"statuses":["New"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[filtersBody](t, rec)
	assert.Equal(t, []string{"Theft"}, state.Draft.IncidentTypes)
	assert.Empty(t, state.Applied.IncidentTypes)
	assert.False(t, state.Apply)

	// Draft alone does not change the dashboard.
	assert.Equal(t, 3, decode[dashboard.Snapshot](t, h.do(t, http.MethodGet, "/api/v1/dashboard", "")).Filtered)

	rec = h.do(t, http.MethodPost, "/api/v1/filters/apply", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[dashboard.Snapshot](t, h.do(t, http.MethodGet, "/api/v1/dashboard", ""))
	assert.True(t, snap.Applied)
	assert.Equal(t, 1, snap.Filtered)
	assert.Equal(t, "CR-1", snap.Rows[0].ID)

	body := decode[reportsBody](t, h.do(t, http.MethodGet, "/api/v1/reports", ""))
	assert.Equal(t, 1, body.Count)

	rec = h.do(t, http.MethodPost, "/api/v1/filters/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[dashboard.Snapshot](t, h.do(t, http.MethodGet, "/api/v1/dashboard", "")).Filtered)
}

type criteriaBody struct {
	Start         string   `json:"start,omitempty"`
	End           string   `json:"end,omitempty"`
	IncidentTypes []string `json:"incident_types"`
	Statuses      []string `json:"statuses"`
}

type filtersBody struct {
	Draft   criteriaBody `json:"draft"`
	Applied criteriaBody `json:"applied"`
	Apply   bool         `json:"apply"`
}

func TestPutFilters_RoundTrip(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPut, "/api/v1/filters", `{"start":"2024-04-20","end":"2024-04-26"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"incident_types":[]`)
	assert.NotContains(t, rec.Body.String(), "null")

	state := decode[filtersBody](t, rec)
	assert.Equal(t, "2024-04-20", state.Draft.Start)
	assert.Equal(t, "2024-04-26", state.Draft.End)
	assert.Equal(t, []string{}, state.Draft.IncidentTypes)

	// Sending back the returned draft is accepted unchanged.
	draft, err := json.Marshal(state.Draft)
	require.NoError(t, err)
	rec = h.do(t, http.MethodPut, "/api/v1/filters", string(draft))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, state.Draft, decode[filtersBody](t, rec).Draft)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/filters/apply", "").Code)
	snap := decode[struct {
		Criteria criteriaBody `json:"criteria"`
		Filtered int          `json:"filtered"`
	}](t, h.do(t, http.MethodGet, "/api/v1/dashboard", ""))
	assert.Equal(t, "2024-04-20", snap.Criteria.Start)
	assert.Equal(t, 2, snap.Filtered)

	rec = h.do(t, http.MethodGet, "/api/v1/reports", "")
	filter := decode[struct {
		Filter criteriaBody `json:"filter"`
	}](t, rec).Filter
	assert.Equal(t, "2024-04-26", filter.End)
}

func TestPutFilters_Invalid(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"bad date", `{"start":"yesterday","end":"2024-04-26"}`},
		{"inverted range", `{"start":"2024-04-26","end":"2024-04-01"}`},
		{"unknown status", `{"statuses":["Closed"]}`},
		{"unknown type", `{"incident_types":["Arson"]}`},
		{"blank type", `{"incident_types":[""]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPut, "/api/v1/filters", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.True(t, h.dash.Filters().Draft().IsZero())
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports/CR-1/status", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)

	assert.Equal(t, "https://dashboard.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodGet, "/api/v1/reports/CR-1", "")
	h.do(t, http.MethodGet, "/api/v1/reports/CR-2", "")
	h.do(t, http.MethodGet, "/api/v1/reports/CR-404", "")

	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.HTTPRequests.WithLabelValues("/api/v1/reports/{id}", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.HTTPRequests.WithLabelValues("/api/v1/reports/{id}", "404")), 0)
}
