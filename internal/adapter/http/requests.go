package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/crime-watch/internal/dashboard"
	"github.com/couchcryptid/crime-watch/internal/domain"
)

const dateLayout = "2006-01-02"

// filterBody is the wire form of criteria. PUT /filters accepts it and every
// response that shows criteria returns it, so a client can send back what it
// received.
type filterBody struct {
	Start         string   `json:"start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	End           string   `json:"end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IncidentTypes []string `json:"incident_types" validate:"omitempty,dive,required"`
	Statuses      []string `json:"statuses" validate:"omitempty,dive,report_status"`
}

func newFilterBody(c domain.Criteria) filterBody {
	b := filterBody{
		IncidentTypes: nonNil(c.IncidentTypes),
		Statuses:      nonNil(c.Statuses),
	}
	if c.Start != nil {
		b.Start = c.Start.Format(dateLayout)
	}
	if c.End != nil {
		b.End = c.End.Format(dateLayout)
	}
	return b
}

// criteria converts the body. Dates have already passed validation.
func (f filterBody) criteria() domain.Criteria {
	c := domain.Criteria{IncidentTypes: f.IncidentTypes, Statuses: f.Statuses}
	if f.Start != "" {
		s, _ := time.Parse(dateLayout, f.Start)
		c.Start = &s
	}
	if f.End != "" {
		e, _ := time.Parse(dateLayout, f.End)
		c.End = &e
	}
	return c
}

type statusRequest struct {
	Status string `json:"status" validate:"required,report_status"`
}

// criteriaFromQuery reads start, end, type and status query parameters.
// type and status may repeat or carry comma-separated values. ok is false
// when none are present.
func criteriaFromQuery(r *http.Request) (c domain.Criteria, ok bool, err error) {
	q := r.URL.Query()
	req := filterBody{
		Start:         q.Get("start"),
		End:           q.Get("end"),
		IncidentTypes: splitValues(q["type"]),
		Statuses:      splitValues(q["status"]),
	}
	if req.Start == "" && req.End == "" && len(req.IncidentTypes) == 0 && len(req.Statuses) == 0 {
		return domain.Criteria{}, false, nil
	}
	if err := validateStruct(req); err != nil {
		return domain.Criteria{}, false, err
	}
	return req.criteria(), true, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

type filterState struct {
	Draft   filterBody `json:"draft"`
	Applied filterBody `json:"applied"`
	Apply   bool       `json:"apply"`
}

// dashboardResponse shadows the snapshot criteria with their wire form.
type dashboardResponse struct {
	dashboard.Snapshot
	Criteria filterBody `json:"criteria"`
}

type vocabulary struct {
	IncidentTypes []string          `json:"incident_types"`
	Statuses      []string          `json:"statuses"`
	Categories    []domain.Category `json:"categories"`
}

type reportsResponse struct {
	Total   int             `json:"total"`
	Count   int             `json:"count"`
	Reports []dashboard.Row `json:"reports"`
	Filter  filterBody      `json:"filter"`
}

type reloadResponse struct {
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loaded_at"`
}
