// Command genmock generates a deterministic crime report fixture for the
// file report source and the test suites. Every generated report is run
// through the domain parser so the fixture matches what ingestion accepts.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/crime_reports.json
//
// The defaults reproduce the committed fixture byte for byte. Reports are
// dated relative to a fixed reference time (2024-04-26 18:00 UTC); run the
// dashboard with DASHBOARD_FIXED_NOW=2024-04-26T18:00:00Z to see non-zero KPIs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/crime-watch/internal/domain"
)

// Defaults of the committed fixture.
const (
	defaultCount = 120
	defaultDays  = 60
	defaultSeed  = 20240426
	defaultLat   = 22.3039
	defaultLon   = 70.8022
)

// referenceNow anchors the fixture: reports span the days before it.
var referenceNow = time.Date(2024, time.April, 26, 18, 0, 0, 0, time.UTC)

// incidentDef weights an incident type and lists its possible severities.
type incidentDef struct {
	incidentType string
	weight       int
	severities   []string
}

var incidents = []incidentDef{
	{"Theft", 22, []string{"Low", "Medium"}},
	{"Burglary", 12, []string{"Medium", "High"}},
	{"Vandalism", 10, []string{"Low"}},
	{"Assault", 9, []string{"Medium", "High"}},
	{"Robbery", 6, []string{"High"}},
	{"Drug Possession", 8, []string{"Low", "Medium"}},
	{"Public Disturbance", 10, []string{"Low"}},
	{"Harassment", 6, []string{"Low", "Medium"}},
	{"Vehicle Accident", 7, []string{"Medium", "High"}},
	{"Fraud", 5, []string{"Medium"}},
	{"Arson", 2, []string{"High"}},
	{"Trespassing", 3, []string{"Low"}},
}

// statusWeights is indexed like domain.Statuses().
var statusWeights = []int{35, 30, 30, 5}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock/crime_reports.json", "output path for the report fixture")
	count := flag.Int("count", defaultCount, "number of reports to generate")
	days := flag.Int("days", defaultDays, "number of days before the reference date to spread reports over")
	seed := flag.Uint64("seed", defaultSeed, "random seed")
	centerLat := flag.Float64("lat", defaultLat, "latitude of the area center")
	centerLon := flag.Float64("lon", defaultLon, "longitude of the area center")
	flag.Parse()

	if *count <= 0 || *days <= 0 {
		flag.Usage()
		return fmt.Errorf("count and days must be positive")
	}

	reports, err := generateAll(*seed, *count, *days, *centerLat, *centerLon)
	if err != nil {
		return err
	}
	log.Printf("generated %d reports", len(reports))

	if err := writeJSON(*out, reports); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(reports)
	return nil
}

// generateAll produces count reports from seed and runs each through the
// domain parser.
func generateAll(seed uint64, count, days int, centerLat, centerLon float64) ([]domain.CrimeReport, error) {
	rng := rand.New(rand.NewPCG(seed, seed>>1)) //nolint:gosec // fixture data, not security sensitive
	reports := make([]domain.CrimeReport, 0, count)
	for i := range count {
		r := generate(rng, i+1, days, centerLat, centerLon)
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal report %s: %w", r.ID, err)
		}
		parsed, err := domain.ParseReport(domain.RawEvent{Value: raw, Timestamp: referenceNow})
		if err != nil {
			return nil, fmt.Errorf("generated report rejected: %w", err)
		}
		reports = append(reports, parsed)
	}
	return reports, nil
}

func generate(rng *rand.Rand, n, days int, centerLat, centerLon float64) domain.CrimeReport {
	def := pickIncident(rng)
	statuses := domain.Statuses()

	occurred := referenceNow.AddDate(0, 0, -rng.IntN(days)).Truncate(24 * time.Hour)
	occurred = occurred.Add(time.Duration(rng.IntN(24))*time.Hour + time.Duration(rng.IntN(60))*time.Minute)
	if occurred.After(referenceNow) {
		occurred = occurred.Add(-12 * time.Hour)
	}
	created := occurred.Add(time.Duration(5+rng.IntN(180)) * time.Minute)

	// Roughly a 5 km spread around the center. The conversions stop fused
	// multiply-add so output is identical on every GOARCH.
	lat := centerLat + float64((rng.Float64()-0.5)*0.09)
	lon := centerLon + float64((rng.Float64()-0.5)*0.09)

	return domain.CrimeReport{
		ID:               fmt.Sprintf("CR-%05d", n),
		IncidentType:     def.incidentType,
		IncidentSeverity: def.severities[rng.IntN(len(def.severities))],
		Date:             occurred.Format("2006-01-02"),
		Time:             occurred.Format("15:04:05"),
		Status:           statuses[weighted(rng, statusWeights)],
		Location:         domain.NewPoint(round6(lat), round6(lon)),
		CreatedAt:        created.Format(time.RFC3339),
	}
}

func pickIncident(rng *rand.Rand) incidentDef {
	weights := make([]int, len(incidents))
	for i, d := range incidents {
		weights[i] = d.weight
	}
	return incidents[weighted(rng, weights)]
}

func weighted(rng *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := rng.IntN(total)
	for i, w := range weights {
		if n < w {
			return i
		}
		n -= w
	}
	return len(weights) - 1
}

func round6(v float64) float64 {
	return float64(int64(float64(v*1e6)+0.5)) / 1e6
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

type typeCount struct {
	name  string
	count int
}

func printStats(reports []domain.CrimeReport) {
	kpis := domain.ComputeKPIs(reports, referenceNow)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(reports))
	fmt.Printf("Reference now: %s\n", referenceNow.Format(time.RFC3339))
	fmt.Printf("Today: %d, last 7 days: %d, last 30 days: %d\n", kpis.Today, kpis.LastWeek, kpis.LastMonth)
	fmt.Printf("Most frequent type: %s\n", kpis.MostFrequentType)
	fmt.Printf("Weekly change: %+v\n", kpis.WeeklyChange)

	fmt.Println("\nBy status:")
	for _, sc := range domain.StatusBreakdown(reports) {
		fmt.Printf("  %s=%d\n", sc.Status, sc.Count)
	}

	byCategory := map[string]int{}
	for _, r := range reports {
		byCategory[domain.CategoryOf(r.IncidentType)]++
	}
	cats := make([]typeCount, 0, len(byCategory))
	for name, c := range byCategory {
		cats = append(cats, typeCount{name, c})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].count > cats[j].count })
	fmt.Print("\nBy category:")
	for _, c := range cats {
		fmt.Printf(" %s=%d", c.name, c.count)
	}
	fmt.Println()

	fmt.Println("\nBy incident type:")
	for _, tc := range domain.IncidentTypeCounts(reports) {
		fmt.Printf("  %s=%d\n", tc.IncidentType, tc.Count)
	}
}
