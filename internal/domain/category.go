package domain

import "strings"

// Crime categories used for marker icons, legend and chart colors.
const (
	CategoryViolent  = "violent"
	CategoryProperty = "property"
	CategoryDrugs    = "drugs"
	CategoryPublic   = "public"
	CategoryOther    = "other"
)

const (
	markerIconBase = "https://raw.githubusercontent.com/pointhi/leaflet-color-markers/master/img/marker-icon-"
	markerShadow   = "https://unpkg.com/leaflet@1.7.1/dist/images/marker-shadow.png"
)

// Category describes how a crime category is drawn.
type Category struct {
	Name    string `json:"name"`
	Color   string `json:"color"`
	IconURL string `json:"icon_url"`
}

var categories = []Category{
	{Name: CategoryViolent, Color: "#e53e3e", IconURL: markerIconBase + "red.png"},
	{Name: CategoryProperty, Color: "#dd6b20", IconURL: markerIconBase + "orange.png"},
	{Name: CategoryDrugs, Color: "#805ad5", IconURL: markerIconBase + "violet.png"},
	{Name: CategoryPublic, Color: "#3182ce", IconURL: markerIconBase + "blue.png"},
	{Name: CategoryOther, Color: "#718096", IconURL: markerIconBase + "grey.png"},
}

// categoryKeywords is checked in order; the first category with a matching
// keyword wins. "trespass" sits under public, after the property keywords.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryViolent, []string{"assault", "robbery", "homicide", "murder", "kidnap", "battery", "sexual", "shooting", "stabbing", "violence"}},
	{CategoryProperty, []string{"theft", "burglary", "vandalism", "arson", "shoplifting", "stolen", "break-in"}},
	{CategoryDrugs, []string{"drug", "narcotic", "substance", "possession"}},
	{CategoryPublic, []string{"disorder", "disturbance", "harassment", "noise", "intoxication", "public", "loitering", "trespass"}},
}

// Categories returns the five display categories in legend order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryOf maps an incident type to its display category.
func CategoryOf(incidentType string) string {
	t := strings.ToLower(incidentType)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(t, kw) {
				return ck.category
			}
		}
	}
	return CategoryOther
}

// CategoryInfo returns the display attributes of a category name, falling
// back to "other".
func CategoryInfo(name string) Category {
	for _, c := range categories {
		if c.Name == name {
			return c
		}
	}
	return categories[len(categories)-1]
}
