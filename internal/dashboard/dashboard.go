package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/couchcryptid/crime-watch/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrLoadFailed is returned when the report list could not be fetched.
var ErrLoadFailed = errors.New("Failed to load crime report data") //nolint:staticcheck // shown to users verbatim

// ErrNotLoaded is returned by CheckReadiness before the first successful load.
var ErrNotLoaded = errors.New("reports not loaded")

// ReportFetcher retrieves the full report list from the upstream source.
type ReportFetcher interface {
	FetchReports(ctx context.Context) ([]domain.CrimeReport, error)
}

// Options configures a Dashboard. Fetcher, Metrics and Logger are required.
type Options struct {
	Fetcher   ReportFetcher
	Geocoder  domain.Geocoder        // optional
	Publisher domain.StatusPublisher // optional
	Clock     clockwork.Clock        // defaults to the real clock
	Location  *time.Location         // defaults to UTC
	Map       domain.MapDefaults
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Dashboard holds the loaded reports and derives every view from them.
type Dashboard struct {
	fetcher   ReportFetcher
	geocoder  domain.Geocoder
	publisher domain.StatusPublisher
	clock     clockwork.Clock
	loc       *time.Location
	mapCfg    domain.MapDefaults
	metrics   *observability.Metrics
	logger    *slog.Logger

	filters *FilterState

	mu     sync.RWMutex
	order  []string
	byID   map[string]domain.CrimeReport
	loaded bool

	// Reports delivered by ingestion and local status edits are not in the
	// upstream source; Load merges them back after every fetch.
	seq       uint64
	ingested  map[string]ingestedReport
	overrides map[string]string
}

type ingestedReport struct {
	report domain.CrimeReport
	first  uint64 // seq of the first delivery, fixes the position
	last   uint64 // seq of the latest delivery
}

// New creates an empty dashboard. Call Load to populate it.
func New(opts Options) *Dashboard {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Map == (domain.MapDefaults{}) {
		opts.Map = domain.DefaultMapDefaults()
	}
	return &Dashboard{
		fetcher:   opts.Fetcher,
		geocoder:  opts.Geocoder,
		publisher: opts.Publisher,
		clock:     opts.Clock,
		loc:       opts.Location,
		mapCfg:    opts.Map,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		filters:   NewFilterState(),
		byID:      make(map[string]domain.CrimeReport),
		ingested:  make(map[string]ingestedReport),
		overrides: make(map[string]string),
	}
}

// Filters returns the shared filter state.
func (d *Dashboard) Filters() *FilterState {
	return d.filters
}

// Load fetches the report list once and replaces the upstream part of the
// store. On failure the previous data is kept and ErrLoadFailed is returned.
//
// Ingested reports the fetch does not contain are kept after the fetched ones.
// An ingested report also present upstream is kept only when it arrived after
// the fetch started; otherwise the upstream copy wins. Local status edits are
// reapplied on top.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.RLock()
	startSeq := d.seq
	d.mu.RUnlock()

	reports, err := d.fetcher.FetchReports(ctx)
	if err != nil {
		d.metrics.ReportLoads.WithLabelValues("error").Inc()
		d.logger.Error("error loading crime reports", "error", err)
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	order := make([]string, 0, len(reports))
	byID := make(map[string]domain.CrimeReport, len(reports))
	for _, r := range reports {
		if _, dup := byID[r.ID]; dup {
			d.logger.Warn("duplicate report id, keeping latest", "report_id", r.ID)
		} else {
			order = append(order, r.ID)
		}
		byID[r.ID] = r
	}

	d.mu.Lock()
	order = d.mergeLocked(order, byID, startSeq)
	d.order, d.byID, d.loaded = order, byID, true
	d.mu.Unlock()

	d.metrics.ReportLoads.WithLabelValues("success").Inc()
	d.metrics.ReportsLoaded.Set(float64(len(order)))
	d.logger.Info("crime reports loaded", "fetched", len(reports), "count", len(order))
	return nil
}

// mergeLocked folds ingested reports and status overrides into a freshly
// fetched store. Callers hold d.mu.
func (d *Dashboard) mergeLocked(order []string, byID map[string]domain.CrimeReport, startSeq uint64) []string {
	pending := make([]string, 0, len(d.ingested))
	for id := range d.ingested {
		pending = append(pending, id)
	}
	sort.Slice(pending, func(i, j int) bool {
		return d.ingested[pending[i]].first < d.ingested[pending[j]].first
	})

	for _, id := range pending {
		ing := d.ingested[id]
		if _, upstream := byID[id]; upstream {
			if ing.last > startSeq {
				byID[id] = ing.report
			} else {
				delete(d.ingested, id)
			}
			continue
		}
		order = append(order, id)
		byID[id] = ing.report
	}

	for id, status := range d.overrides {
		if r, ok := byID[id]; ok {
			r.Status = status
			byID[id] = r
		}
	}
	return order
}

// Upsert inserts new reports and replaces existing ones by id. Upserted
// reports survive later reloads, and a fresh delivery drops any local status
// edit of that report.
func (d *Dashboard) Upsert(reports []domain.CrimeReport) {
	if len(reports) == 0 {
		return
	}
	d.mu.Lock()
	for _, r := range reports {
		if _, ok := d.byID[r.ID]; !ok {
			d.order = append(d.order, r.ID)
		}
		d.byID[r.ID] = r

		d.seq++
		ing, seen := d.ingested[r.ID]
		if !seen {
			ing.first = d.seq
		}
		ing.report, ing.last = r, d.seq
		d.ingested[r.ID] = ing
		delete(d.overrides, r.ID)
	}
	n := len(d.order)
	d.mu.Unlock()
	d.metrics.ReportsLoaded.Set(float64(n))
}

// Reports returns every loaded report in load order.
func (d *Dashboard) Reports() []domain.CrimeReport {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.CrimeReport, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Filtered returns the reports matching the applied filters.
func (d *Dashboard) Filtered() []domain.CrimeReport {
	return d.filters.Applied().Apply(d.Reports())
}

// IncidentTypes returns the incident type vocabulary of the loaded data.
func (d *Dashboard) IncidentTypes() []string {
	return domain.IncidentTypes(d.Reports())
}

// Statuses returns the fixed status vocabulary.
func (d *Dashboard) Statuses() []string {
	return domain.Statuses()
}

// ValidateCriteria checks c against the current vocabularies.
func (d *Dashboard) ValidateCriteria(c domain.Criteria) error {
	return c.Validate(d.IncidentTypes())
}

// Now returns the dashboard's current time in its display location.
func (d *Dashboard) Now() time.Time {
	return d.clock.Now().In(d.loc)
}

// Row is one line of the reports table.
type Row struct {
	ID           string `json:"id"`
	IncidentType string `json:"incident_type"`
	Category     string `json:"category"`
	Severity     string `json:"incident_severity"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Status       string `json:"status"`
}

// Rows converts reports to table rows.
func Rows(reports []domain.CrimeReport) []Row {
	out := make([]Row, 0, len(reports))
	for _, r := range reports {
		out = append(out, Row{
			ID:           r.ID,
			IncidentType: r.IncidentType,
			Category:     domain.CategoryOf(r.IncidentType),
			Severity:     r.IncidentSeverity,
			Date:         r.Date,
			Time:         r.ClockHHMM(),
			Status:       r.Status,
		})
	}
	return out
}

// Snapshot is every dashboard view for one set of criteria.
type Snapshot struct {
	Criteria        domain.Criteria              `json:"criteria"`
	Applied         bool                         `json:"applied"`
	Total           int                          `json:"total"`
	Filtered        int                          `json:"filtered"`
	GeneratedAt     time.Time                    `json:"generated_at"`
	KPIs            domain.KPIs                  `json:"kpis"`
	StatusBreakdown []domain.StatusCount         `json:"status_breakdown"`
	Trend           []domain.TrendPoint          `json:"trend"`
	TimeOfDay       domain.TimeOfDayDistribution `json:"time_of_day"`
	IncidentTypes   []domain.TypeCount           `json:"incident_types"`
	Map             domain.MapView               `json:"map"`
	Rows            []Row                        `json:"rows"`
}

// Snapshot derives all views from the applied filters.
func (d *Dashboard) Snapshot() Snapshot {
	return d.SnapshotFor(d.filters.Applied(), d.filters.IsApplied())
}

// SnapshotFor derives all views from c, ignoring the applied filters.
func (d *Dashboard) SnapshotFor(c domain.Criteria, applied bool) Snapshot {
	all := d.Reports()
	filtered := c.Apply(all)
	now := d.Now()
	return Snapshot{
		Criteria:        c,
		Applied:         applied,
		Total:           len(all),
		Filtered:        len(filtered),
		GeneratedAt:     now,
		KPIs:            domain.ComputeKPIs(filtered, now),
		StatusBreakdown: domain.StatusBreakdown(filtered),
		Trend:           domain.DailyTrend(filtered),
		TimeOfDay:       domain.TimeOfDay(filtered),
		IncidentTypes:   domain.IncidentTypeCounts(filtered),
		Map:             domain.BuildMapView(filtered, d.mapCfg),
		Rows:            Rows(filtered),
	}
}

// KPIs computes the summary cards for the applied filters.
func (d *Dashboard) KPIs() domain.KPIs {
	return domain.ComputeKPIs(d.Filtered(), d.Now())
}

// MapView builds the map for the applied filters.
func (d *Dashboard) MapView() domain.MapView {
	return domain.BuildMapView(d.Filtered(), d.mapCfg)
}

func (d *Dashboard) get(id string) (domain.CrimeReport, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.byID[id]
	if !ok {
		return domain.CrimeReport{}, fmt.Errorf("%w: %s", domain.ErrReportNotFound, id)
	}
	return r, nil
}

// Report returns the detail view of one report. When a geocoder is
// configured the location is reverse geocoded; geocoding failures are logged
// and the bare report is returned.
func (d *Dashboard) Report(ctx context.Context, id string) (domain.ReportDetail, error) {
	r, err := d.get(id)
	if err != nil {
		return domain.ReportDetail{}, err
	}
	detail, err := domain.EnrichWithGeocoding(ctx, domain.NewReportDetail(r), d.geocoder)
	if err != nil {
		d.logger.Warn("reverse geocoding failed", "report_id", id, "error", err)
	}
	return detail, nil
}

// UpdateStatus changes a report's status in place and announces the change.
// The edit is local and outlives reloads of the upstream data.
// Publish failures are logged; the local update stands.
func (d *Dashboard) UpdateStatus(ctx context.Context, id, status string) (domain.CrimeReport, error) {
	if !domain.IsKnownStatus(status) {
		return domain.CrimeReport{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	d.mu.Lock()
	r, ok := d.byID[id]
	if !ok {
		d.mu.Unlock()
		return domain.CrimeReport{}, fmt.Errorf("%w: %s", domain.ErrReportNotFound, id)
	}
	previous := r.Status
	r.Status = status
	d.byID[id] = r
	d.overrides[id] = status
	d.mu.Unlock()

	d.metrics.StatusUpdates.WithLabelValues(status).Inc()
	d.logger.Info("report status updated", "report_id", id, "from", previous, "to", status)

	if d.publisher != nil && previous != status {
		if err := d.publisher.PublishStatusChange(ctx, domain.NewStatusChange(r, previous)); err != nil {
			d.metrics.StatusPublishErrors.Inc()
			d.logger.Error("publish status change", "report_id", id, "error", err)
		}
	}
	return r, nil
}

// CheckReadiness reports ready once reports have been loaded successfully.
func (d *Dashboard) CheckReadiness(_ context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.loaded {
		return ErrNotLoaded
	}
	return nil
}

// LoadBatch upserts reports delivered by the ingestion pipeline.
func (d *Dashboard) LoadBatch(ctx context.Context, reports []domain.CrimeReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.Upsert(reports)
	return nil
}
