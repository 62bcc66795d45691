package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/crime-watch/internal/domain"
)

// ReportTransformer decodes report topic messages.
type ReportTransformer struct {
	logger *slog.Logger
}

// NewTransformer returns the Transformer used by the ingestion loop.
func NewTransformer(logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{logger: logger}
}

// Transform parses and validates one report.
func (t *ReportTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.CrimeReport, error) {
	report, err := domain.ParseReport(raw)
	if err != nil {
		return domain.CrimeReport{}, err
	}
	t.logger.Debug("report decoded", "report_id", report.ID, "offset", raw.Offset)
	return report, nil
}
