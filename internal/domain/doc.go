// Package domain models crime incident reports and the aggregations the
// dashboard derives from them.
//
// # Data Source
//
// Reports originate from an external report service. Each report is a flat
// JSON object; the dashboard fetches the full list once at startup (and on an
// explicit reload) and receives newly filed reports from a Kafka topic.
//
// # Report Conventions
//
// Date and time:
//
//	"date" is a calendar date, "2024-04-26". Full RFC 3339 timestamps are
//	accepted too; only their calendar date is kept.
//	"time" is a 24-hour wall clock time, "15:10:00" or "15:10". Popups and the
//	reports table show the "HH:MM" prefix.
//	"created_at" is the RFC 3339 instant the report was filed upstream. It
//	orders reports by recency (map centering) and is independent of "date".
//
// Location:
//
//	GeoJSON point, {"type":"Point","coordinates":[lon, lat]}. Note the
//	longitude-first order; map positions are emitted as [lat, lon].
//
// Status vocabulary (fixed, in display order):
//
//	New | Under Investigation | Resolved | False Report
//
// Incident types are free-form labels ("Theft", "Assault", ...). The type
// vocabulary is whatever the loaded reports contain.
//
// # Categories
//
// Incident types are grouped into five display categories by keyword match on
// the lower-cased type, first match wins:
//
//	violent:  assault, robbery, homicide, murder, kidnap, battery, sexual, shooting, stabbing, violence
//	property: theft, burglary, vandalism, arson, shoplifting, stolen, break-in
//	drugs:    drug, narcotic, substance, possession
//	public:   disorder, disturbance, harassment, noise, intoxication, public, loitering, trespass
//	other:    everything else
//
// # KPI Windows
//
// All windows end at "now" and are inclusive:
//
//	today:        [start of the current day, now]
//	last 7 days:  [now - 7d, now]
//	last 30 days: [now - 30d, now]
//
// Reports dated in the future, or whose date cannot be parsed, fall in no
// window. The week-over-week change compares the last 7 days against the
// average week of the preceding 23 days: prev = (month - week) / 3.
package domain
