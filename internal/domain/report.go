package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Report status vocabulary, in display order.
const (
	StatusNew                = "New"
	StatusUnderInvestigation = "Under Investigation"
	StatusResolved           = "Resolved"
	StatusFalseReport        = "False Report"
)

const (
	dateLayout = "2006-01-02"
	day        = 24 * time.Hour
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidFilter  = errors.New("invalid filter")
	ErrInvalidReport  = errors.New("invalid report")
)

// Statuses returns the status vocabulary in display order.
func Statuses() []string {
	return []string{StatusNew, StatusUnderInvestigation, StatusResolved, StatusFalseReport}
}

// IsKnownStatus reports whether s belongs to the status vocabulary.
func IsKnownStatus(s string) bool {
	switch s {
	case StatusNew, StatusUnderInvestigation, StatusResolved, StatusFalseReport:
		return true
	default:
		return false
	}
}

// Point is a GeoJSON point. Coordinates are [lon, lat].
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON point from a latitude/longitude pair.
func NewPoint(lat, lon float64) Point {
	return Point{Type: "Point", Coordinates: []float64{lon, lat}}
}

// LatLon returns the point as (lat, lon). It fails when the coordinates are
// missing or out of range.
func (p Point) LatLon() (float64, float64, error) {
	if len(p.Coordinates) != 2 {
		return 0, 0, fmt.Errorf("point has %d coordinates, want 2", len(p.Coordinates))
	}
	lon, lat := p.Coordinates[0], p.Coordinates[1]
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: lat=%g lon=%g", lat, lon)
	}
	return lat, lon, nil
}

// CrimeReport is a single incident as delivered by the upstream data source.
type CrimeReport struct {
	ID               string `json:"id"`
	IncidentType     string `json:"incident_type"`
	IncidentSeverity string `json:"incident_severity"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Status           string `json:"status"`
	Location         Point  `json:"location"`
	CreatedAt        string `json:"created_at"`
}

// Day returns the report's calendar date at 00:00 UTC.
func (r CrimeReport) Day() (time.Time, error) {
	return parseDay(r.Date)
}

// OccurredAt combines the report date and time into an instant in loc.
// A missing time means midnight.
func (r CrimeReport) OccurredAt(loc *time.Location) (time.Time, error) {
	d, err := parseDay(r.Date)
	if err != nil {
		return time.Time{}, err
	}
	h, m, s, err := parseClock(r.Time)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, loc), nil
}

// Created parses created_at.
func (r CrimeReport) Created() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(r.CreatedAt))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", r.CreatedAt, err)
	}
	return t, nil
}

// ClockHHMM returns the "HH:MM" prefix of the report time.
func (r CrimeReport) ClockHHMM() string {
	t := strings.TrimSpace(r.Time)
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

// Hour returns the hour of day of the report time.
func (r CrimeReport) Hour() (int, error) {
	h, _, _, err := parseClock(r.Time)
	return h, err
}

// Validate checks the fields every downstream aggregation relies on.
func (r CrimeReport) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidReport)
	}
	if strings.TrimSpace(r.IncidentType) == "" {
		return fmt.Errorf("%w: report %s: missing incident_type", ErrInvalidReport, r.ID)
	}
	if _, err := r.Day(); err != nil {
		return fmt.Errorf("%w: report %s: %w", ErrInvalidReport, r.ID, err)
	}
	if _, _, err := r.Location.LatLon(); err != nil {
		return fmt.Errorf("%w: report %s: %w", ErrInvalidReport, r.ID, err)
	}
	return nil
}

// parseDay accepts "2006-01-02" or an RFC 3339 timestamp and returns the
// calendar date at 00:00 UTC.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: not YYYY-MM-DD or RFC 3339", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseClock parses "HH:MM" or "HH:MM:SS". An empty string is midnight.
func parseClock(s string) (int, int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("parse time %q: not HH:MM[:SS]", s)
}

// dayOf truncates t to its calendar date (in t's own location) at 00:00 UTC.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
