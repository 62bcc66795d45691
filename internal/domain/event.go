package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawEvent represents an unprocessed message from the report topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseReport decodes a report published on the report topic. Reports
// arriving without a status are new. The message timestamp stands in for a
// missing created_at.
func ParseReport(raw RawEvent) (CrimeReport, error) {
	var r CrimeReport
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return CrimeReport{}, fmt.Errorf("parse report: %w", err)
	}
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" && len(raw.Key) > 0 {
		r.ID = string(raw.Key)
	}
	if r.Status == "" {
		r.Status = StatusNew
	}
	if r.CreatedAt == "" && !raw.Timestamp.IsZero() {
		r.CreatedAt = raw.Timestamp.UTC().Format(time.RFC3339)
	}
	if r.Location.Type == "" && len(r.Location.Coordinates) > 0 {
		r.Location.Type = "Point"
	}
	if err := r.Validate(); err != nil {
		return CrimeReport{}, fmt.Errorf("parse report: %w", err)
	}
	return r, nil
}

// StatusChange records a status update made from the dashboard.
type StatusChange struct {
	EventID        string    `json:"event_id"`
	ReportID       string    `json:"report_id"`
	IncidentType   string    `json:"incident_type"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	ChangedAt      time.Time `json:"changed_at"`
}

// NewStatusChange stamps a status transition of report with a fresh event id.
func NewStatusChange(report CrimeReport, previous string) StatusChange {
	return StatusChange{
		EventID:        uuid.NewString(),
		ReportID:       report.ID,
		IncidentType:   report.IncidentType,
		PreviousStatus: previous,
		Status:         report.Status,
		ChangedAt:      clock.Now().UTC(),
	}
}

// StatusPublisher forwards status changes to downstream consumers.
type StatusPublisher interface {
	PublishStatusChange(ctx context.Context, change StatusChange) error
}
