package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is shown in place of a KPI that has no data.
const NotAvailable = "N/A"

// Change directions for the week-over-week KPI.
const (
	ChangeIncrease = "increase"
	ChangeDecrease = "decrease"
	ChangeNeutral  = "neutral"
)

// Change is a signed percentage change with its display form.
type Change struct {
	Percent   float64 `json:"percent"`
	Direction string  `json:"direction"`
	Display   string  `json:"display"`
}

// KPIs are the overview card values.
type KPIs struct {
	Today            int    `json:"today"`
	LastWeek         int    `json:"last_7_days"`
	LastMonth        int    `json:"last_30_days"`
	MostFrequentType string `json:"most_frequent_type"`
	WeeklyChange     Change `json:"weekly_change"`
}

// ComputeKPIs derives the overview cards from reports relative to now.
// Report instants are interpreted in now's location.
func ComputeKPIs(reports []CrimeReport, now time.Time) KPIs {
	week := len(LastWeekReports(reports, now))
	month := len(LastMonthReports(reports, now))
	return KPIs{
		Today:            len(TodayReports(reports, now)),
		LastWeek:         week,
		LastMonth:        month,
		MostFrequentType: MostFrequentIncidentType(reports),
		WeeklyChange:     WeeklyChange(week, month),
	}
}

// TodayReports returns reports between the start of now's day and now.
func TodayReports(reports []CrimeReport, now time.Time) []CrimeReport {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return reportsBetween(reports, start, now)
}

// LastWeekReports returns reports in the seven days up to now.
func LastWeekReports(reports []CrimeReport, now time.Time) []CrimeReport {
	return reportsBetween(reports, now.Add(-7*day), now)
}

// LastMonthReports returns reports in the thirty days up to now.
func LastMonthReports(reports []CrimeReport, now time.Time) []CrimeReport {
	return reportsBetween(reports, now.Add(-30*day), now)
}

func reportsBetween(reports []CrimeReport, from, to time.Time) []CrimeReport {
	var out []CrimeReport
	for _, r := range reports {
		at, err := r.OccurredAt(to.Location())
		if err != nil {
			continue
		}
		if at.Before(from) || at.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MostFrequentIncidentType returns the most common incident type, ties going
// to the type seen first, or NotAvailable for no reports. Blank types are not
// counted.
func MostFrequentIncidentType(reports []CrimeReport) string {
	counts := make(map[string]int, len(reports))
	best, bestCount := "", 0
	for _, r := range reports {
		counts[r.IncidentType]++
	}
	for _, t := range IncidentTypes(reports) {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	if best == "" {
		return NotAvailable
	}
	return best
}

// WeeklyChange compares the last week against the average of the three
// preceding weeks, inferred as (month - week) / 3. With no reports this week
// the change is 0. With reports this week but none before, the previous
// average is zero and the change is reported as a 100% increase.
func WeeklyChange(week, month int) Change {
	if week <= 0 {
		return newChange(0)
	}
	prev := float64(month-week) / 3
	if prev <= 0 {
		return newChange(100)
	}
	return newChange((float64(week) - prev) / prev * 100)
}

func newChange(pct float64) Change {
	pct = math.Round(pct*10) / 10
	c := Change{Percent: pct, Direction: ChangeNeutral}
	switch {
	case pct > 0:
		c.Direction = ChangeIncrease
	case pct < 0:
		c.Direction = ChangeDecrease
	}
	c.Display = strconv.FormatFloat(math.Abs(pct), 'f', -1, 64) + "%"
	return c
}
