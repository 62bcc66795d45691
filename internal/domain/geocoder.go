package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves report coordinates to place details for the detail view.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// ReportDetail is a report enriched for the detail drawer.
type ReportDetail struct {
	CrimeReport
	Category         string  `json:"category"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}

// NewReportDetail wraps a report without geocoding enrichment.
func NewReportDetail(r CrimeReport) ReportDetail {
	return ReportDetail{CrimeReport: r, Category: CategoryOf(r.IncidentType)}
}

// EnrichWithGeocoding reverse geocodes the report location. A nil geocoder
// leaves the detail untouched; failures and empty answers degrade to the bare
// report with GeoSource recording why.
func EnrichWithGeocoding(ctx context.Context, detail ReportDetail, geocoder Geocoder) (ReportDetail, error) {
	if geocoder == nil {
		return detail, nil
	}
	lat, lon, err := detail.Location.LatLon()
	if err != nil {
		detail.GeoSource = "original"
		return detail, nil
	}
	result, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		detail.GeoSource = "failed"
		return detail, err
	}
	if result.FormattedAddress == "" {
		detail.GeoSource = "original"
		return detail, nil
	}
	detail.FormattedAddress = result.FormattedAddress
	detail.PlaceName = result.PlaceName
	detail.GeoConfidence = result.Confidence
	detail.GeoSource = "reverse"
	return detail, nil
}
