package domain

import "fmt"

// MapCenterNotice is attached to a map view whose center could not be derived.
const MapCenterNotice = "Failed to center map"

// MapDefaults configures the map view.
type MapDefaults struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
	TileURL   string
}

// DefaultMapDefaults centers on Marwadi University, Rajkot, at street-level zoom.
func DefaultMapDefaults() MapDefaults {
	return MapDefaults{
		CenterLat: 22.3039,
		CenterLon: 70.8022,
		Zoom:      14,
		TileURL:   "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	}
}

// Popup holds the fields shown when a marker is clicked.
type Popup struct {
	IncidentType string `json:"incident_type"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	ID           string `json:"id"`
	Status       string `json:"status"`
	Severity     string `json:"severity"`
}

// Marker is one clustered map marker. Position is [lat, lon].
type Marker struct {
	ReportID  string     `json:"report_id"`
	Position  [2]float64 `json:"position"`
	Category  string     `json:"category"`
	IconURL   string     `json:"icon_url"`
	ShadowURL string     `json:"shadow_url"`
	Popup     Popup      `json:"popup"`
}

// MapView is everything the map component needs.
type MapView struct {
	Center  [2]float64 `json:"center"`
	Zoom    int        `json:"zoom"`
	TileURL string     `json:"tile_url"`
	Markers []Marker   `json:"markers"`
	Legend  []Category `json:"legend"`
	Notice  string     `json:"notice,omitempty"`
}

// BuildMapView places a marker per report with valid coordinates and centers
// the map on the most recently created report. When centering fails the
// default center is kept and Notice is set.
func BuildMapView(reports []CrimeReport, defaults MapDefaults) MapView {
	view := MapView{
		Center:  [2]float64{defaults.CenterLat, defaults.CenterLon},
		Zoom:    defaults.Zoom,
		TileURL: defaults.TileURL,
		Markers: make([]Marker, 0, len(reports)),
		Legend:  Categories(),
	}

	for _, r := range reports {
		lat, lon, err := r.Location.LatLon()
		if err != nil {
			continue
		}
		cat := CategoryOf(r.IncidentType)
		view.Markers = append(view.Markers, Marker{
			ReportID:  r.ID,
			Position:  [2]float64{lat, lon},
			Category:  cat,
			IconURL:   CategoryInfo(cat).IconURL,
			ShadowURL: markerShadow,
			Popup: Popup{
				IncidentType: r.IncidentType,
				Date:         r.Date,
				Time:         r.ClockHHMM(),
				ID:           r.ID,
				Status:       r.Status,
				Severity:     r.IncidentSeverity,
			},
		})
	}

	if len(reports) == 0 {
		return view
	}
	center, err := mostRecentLocation(reports)
	if err != nil {
		view.Notice = MapCenterNotice
		return view
	}
	view.Center = center
	return view
}

// mostRecentLocation returns [lat, lon] of the report with the latest
// created_at. Any unparseable created_at or bad coordinates on the winner
// fails the whole lookup.
func mostRecentLocation(reports []CrimeReport) ([2]float64, error) {
	latest := -1
	var latestAt int64
	for i, r := range reports {
		at, err := r.Created()
		if err != nil {
			return [2]float64{}, fmt.Errorf("report %s: %w", r.ID, err)
		}
		if latest < 0 || at.UnixNano() > latestAt {
			latest, latestAt = i, at.UnixNano()
		}
	}
	lat, lon, err := reports[latest].Location.LatLon()
	if err != nil {
		return [2]float64{}, fmt.Errorf("report %s: %w", reports[latest].ID, err)
	}
	return [2]float64{lat, lon}, nil
}
