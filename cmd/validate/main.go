// Command validate performs integrity checks on a crime report fixture: the
// report schema, the status vocabulary, id uniqueness, date consistency and
// the dashboard aggregates derived from the data.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -reports data/mock/crime_reports.json \
//	  -now 2024-04-26T18:00:00Z
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	reportsPath := flag.String("reports", "data/mock/crime_reports.json", "path to the crime report JSON fixture")
	nowFlag := flag.String("now", "2024-04-26T18:00:00Z", "reference time (RFC 3339) for date and KPI checks")
	flag.Parse()

	now, err := time.Parse(time.RFC3339, *nowFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -now: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*reportsPath, now); code != 0 {
		os.Exit(code)
	}
}

func run(reportsPath string, now time.Time) int {
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	fmt.Println("=== Crime Report Integrity Validation ===")
	fmt.Println()

	reports, err := loadJSON[domain.CrimeReport](reportsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reports: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(reports),
		validateVocabulary(reports),
		validateUniqueness(reports),
		validateDates(reports, now),
		validateAggregates(reports, now),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d reports\n", len(reports))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from a CLI flag
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// ── Phases ──

func validateSchema(reports []domain.CrimeReport) *phase {
	p := &phase{name: "Schema (required fields, coordinates)"}
	for i := range reports {
		r := &reports[i]
		if err := r.Validate(); err != nil {
			p.errorf("record %d: %v", i, err)
			continue
		}
		if strings.TrimSpace(r.IncidentSeverity) == "" {
			p.errorf("record %d (%s): missing incident_severity", i, r.ID)
		}
		if r.Location.Type != "Point" {
			p.errorf("record %d (%s): location type %q, want Point", i, r.ID, r.Location.Type)
		}
		if _, err := r.Hour(); err != nil {
			p.errorf("record %d (%s): %v", i, r.ID, err)
		}
		if _, err := r.Created(); err != nil {
			p.errorf("record %d (%s): %v", i, r.ID, err)
		}
	}
	return p
}

func validateVocabulary(reports []domain.CrimeReport) *phase {
	p := &phase{name: "Vocabulary (status, category)"}
	for i := range reports {
		r := &reports[i]
		if !domain.IsKnownStatus(r.Status) {
			p.errorf("record %d (%s): unknown status %q", i, r.ID, r.Status)
		}
	}

	// Uncategorised types still render, but usually mean a typo in the data.
	for _, t := range domain.IncidentTypes(reports) {
		if domain.CategoryOf(t) == domain.CategoryOther {
			fmt.Printf("  note: incident type %q falls back to category %q\n", t, domain.CategoryOther)
		}
	}
	return p
}

func validateUniqueness(reports []domain.CrimeReport) *phase {
	p := &phase{name: "Uniqueness (report ids)"}
	seen := make(map[string]int, len(reports))
	for i := range reports {
		id := reports[i].ID
		if first, ok := seen[id]; ok {
			p.errorf("record %d: id %q duplicates record %d", i, id, first)
			continue
		}
		seen[id] = i
	}
	return p
}

func validateDates(reports []domain.CrimeReport, now time.Time) *phase {
	p := &phase{name: "Dates (not in future, created after occurrence)"}
	for i := range reports {
		r := &reports[i]
		occurred, err := r.OccurredAt(time.UTC)
		if err != nil {
			continue // reported by the schema phase
		}
		if occurred.After(now) {
			p.errorf("record %d (%s): occurred %s after reference time %s",
				i, r.ID, occurred.Format(time.RFC3339), now.Format(time.RFC3339))
		}
		created, err := r.Created()
		if err != nil {
			continue
		}
		if created.Before(occurred) {
			p.errorf("record %d (%s): created_at %s precedes occurrence %s",
				i, r.ID, r.CreatedAt, occurred.Format(time.RFC3339))
		}
	}
	return p
}

func validateAggregates(reports []domain.CrimeReport, now time.Time) *phase {
	p := &phase{name: "Aggregates (KPIs, charts)"}
	total := len(reports)

	kpis := domain.ComputeKPIs(reports, now)
	if kpis.Today > kpis.LastWeek || kpis.LastWeek > kpis.LastMonth {
		p.errorf("KPI windows not nested: today=%d week=%d month=%d", kpis.Today, kpis.LastWeek, kpis.LastMonth)
	}
	if total > 0 && kpis.MostFrequentType == "" {
		p.errorf("most frequent type is empty for %d reports", total)
	}

	sum := 0
	for _, sc := range domain.StatusBreakdown(reports) {
		sum += sc.Count
	}
	if sum != total {
		p.errorf("status breakdown sums to %d, want %d", sum, total)
	}

	sum = 0
	for _, tc := range domain.IncidentTypeCounts(reports) {
		sum += tc.Count
	}
	if sum != total {
		p.errorf("incident type counts sum to %d, want %d", sum, total)
	}

	sum = 0
	for _, tp := range domain.DailyTrend(reports) {
		sum += tp.Total
	}
	if sum != total {
		p.errorf("daily trend sums to %d, want %d", sum, total)
	}

	tod := domain.TimeOfDay(reports)
	hours, periods := 0, 0
	for _, h := range tod.Hours {
		hours += h.Count
	}
	for _, pc := range tod.Periods {
		periods += pc.Count
	}
	if hours != periods {
		p.errorf("time of day hours sum to %d but periods sum to %d", hours, periods)
	}
	if hours != total {
		p.errorf("time of day covers %d reports, want %d", hours, total)
	}

	fmt.Printf("  KPIs at %s: today=%d week=%d month=%d top=%q\n",
		now.Format(time.RFC3339), kpis.Today, kpis.LastWeek, kpis.LastMonth, kpis.MostFrequentType)
	return p
}
