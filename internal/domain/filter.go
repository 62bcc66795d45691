package domain

import (
	"fmt"
	"slices"
	"time"
)

// Criteria selects a subset of reports. Start and End are only honoured when
// both are set. Empty IncidentTypes or Statuses impose no restriction.
type Criteria struct {
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	IncidentTypes []string   `json:"incident_types"`
	Statuses      []string   `json:"statuses"`
}

// HasDateRange reports whether the date restriction is active.
func (c Criteria) HasDateRange() bool {
	return c.Start != nil && c.End != nil
}

// IsZero reports whether the criteria impose no restriction at all.
func (c Criteria) IsZero() bool {
	return !c.HasDateRange() && len(c.IncidentTypes) == 0 && len(c.Statuses) == 0
}

// Validate rejects an inverted date range and selections outside the known
// vocabularies. knownTypes is the incident type vocabulary of the loaded data.
func (c Criteria) Validate(knownTypes []string) error {
	if c.HasDateRange() && dayOf(*c.Start).After(dayOf(*c.End)) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidFilter,
			c.Start.Format(dateLayout), c.End.Format(dateLayout))
	}
	for _, s := range c.Statuses {
		if !IsKnownStatus(s) {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, s)
		}
	}
	for _, t := range c.IncidentTypes {
		if !slices.Contains(knownTypes, t) {
			return fmt.Errorf("%w: unknown incident type %q", ErrInvalidFilter, t)
		}
	}
	return nil
}

// Apply returns the reports matching the criteria, preserving input order.
// The date range covers [start 00:00:00, end 23:59:59.999] on calendar dates;
// reports whose date cannot be parsed are excluded while a range is active.
func (c Criteria) Apply(reports []CrimeReport) []CrimeReport {
	if c.IsZero() {
		return append(make([]CrimeReport, 0, len(reports)), reports...)
	}

	var start, end time.Time
	if c.HasDateRange() {
		start = dayOf(*c.Start)
		end = dayOf(*c.End).Add(day - time.Millisecond)
	}

	out := make([]CrimeReport, 0, len(reports))
	for _, r := range reports {
		if c.HasDateRange() {
			d, err := r.Day()
			if err != nil || d.Before(start) || d.After(end) {
				continue
			}
		}
		if len(c.IncidentTypes) > 0 && !slices.Contains(c.IncidentTypes, r.IncidentType) {
			continue
		}
		if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, r.Status) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Clone returns a deep copy.
func (c Criteria) Clone() Criteria {
	out := Criteria{
		IncidentTypes: slices.Clone(c.IncidentTypes),
		Statuses:      slices.Clone(c.Statuses),
	}
	if c.Start != nil {
		s := *c.Start
		out.Start = &s
	}
	if c.End != nil {
		e := *c.End
		out.End = &e
	}
	return out
}

// IncidentTypes returns the distinct incident types in first-seen order.
func IncidentTypes(reports []CrimeReport) []string {
	seen := make(map[string]struct{}, len(reports))
	var out []string
	for _, r := range reports {
		if _, ok := seen[r.IncidentType]; ok {
			continue
		}
		seen[r.IncidentType] = struct{}{}
		out = append(out, r.IncidentType)
	}
	return out
}
