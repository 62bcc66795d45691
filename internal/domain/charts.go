package domain

import (
	"sort"
	"strings"
	"time"
)

// StatusCount is one status KPI card.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// StatusBreakdown counts reports per status. Every vocabulary status is
// present, in vocabulary order; statuses outside the vocabulary follow in
// first-seen order.
func StatusBreakdown(reports []CrimeReport) []StatusCount {
	counts := make(map[string]int)
	var extra []string
	for _, r := range reports {
		if _, ok := counts[r.Status]; !ok && !IsKnownStatus(r.Status) {
			extra = append(extra, r.Status)
		}
		counts[r.Status]++
	}

	statuses := append(Statuses(), extra...)
	out := make([]StatusCount, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

// TrendPoint is one day of the crime trend chart.
type TrendPoint struct {
	Date       string         `json:"date"`
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
}

// DailyTrend counts reports per calendar date in ascending date order.
// Reports with an unparseable date are skipped.
func DailyTrend(reports []CrimeReport) []TrendPoint {
	byDay := make(map[time.Time]*TrendPoint)
	for _, r := range reports {
		d, err := r.Day()
		if err != nil {
			continue
		}
		p, ok := byDay[d]
		if !ok {
			p = &TrendPoint{Date: d.Format(dateLayout), ByCategory: make(map[string]int)}
			byDay[d] = p
		}
		p.Total++
		p.ByCategory[CategoryOf(r.IncidentType)]++
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]TrendPoint, 0, len(days))
	for _, d := range days {
		out = append(out, *byDay[d])
	}
	return out
}

// Periods of the day used by the time-of-day chart.
const (
	PeriodNight     = "Night"
	PeriodMorning   = "Morning"
	PeriodAfternoon = "Afternoon"
	PeriodEvening   = "Evening"
)

// HourCount is one hourly bucket.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// PeriodCount is one period-of-day bucket.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// TimeOfDayDistribution is the time-of-day chart series.
type TimeOfDayDistribution struct {
	Hours   []HourCount   `json:"hours"`
	Periods []PeriodCount `json:"periods"`
}

// TimeOfDay buckets reports by hour (24 buckets) and by period: night 00-05,
// morning 06-11, afternoon 12-17, evening 18-23. Reports without a time or
// with an unparseable one are left out.
func TimeOfDay(reports []CrimeReport) TimeOfDayDistribution {
	hours := make([]HourCount, 24)
	for h := range hours {
		hours[h].Hour = h
	}
	for _, r := range reports {
		if strings.TrimSpace(r.Time) == "" {
			continue
		}
		h, err := r.Hour()
		if err != nil {
			continue
		}
		hours[h].Count++
	}

	periods := []PeriodCount{
		{Period: PeriodNight},
		{Period: PeriodMorning},
		{Period: PeriodAfternoon},
		{Period: PeriodEvening},
	}
	for _, hc := range hours {
		periods[hc.Hour/6].Count += hc.Count
	}
	return TimeOfDayDistribution{Hours: hours, Periods: periods}
}

// TypeCount is one bar of the incident type chart.
type TypeCount struct {
	IncidentType string `json:"incident_type"`
	Category     string `json:"category"`
	Color        string `json:"color"`
	Count        int    `json:"count"`
}

// IncidentTypeCounts counts reports per incident type, highest count first,
// ties broken by name.
func IncidentTypeCounts(reports []CrimeReport) []TypeCount {
	counts := make(map[string]int)
	for _, r := range reports {
		counts[r.IncidentType]++
	}

	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		cat := CategoryOf(t)
		out = append(out, TypeCount{
			IncidentType: t,
			Category:     cat,
			Color:        CategoryInfo(cat).Color,
			Count:        n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].IncidentType < out[j].IncidentType
	})
	return out
}
