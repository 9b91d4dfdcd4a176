package registry

import "github.com/mnplowfinder/plowfinder/internal/slug"

// LongSlugSuffix is appended to a city's short slug to form its SEO slug.
const LongSlugSuffix = "-mn-snow-removal"

// City is a served city.
type City struct {
	// Name is the unique display name ("Lake City").
	Name string `json:"name"`

	// ShortSlug is Normalize(Name).
	ShortSlug string `json:"shortSlug"`

	// LongSlug is ShortSlug + LongSlugSuffix.
	LongSlug string `json:"longSlug"`

	// Lat and Lng place the city on the map.
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewCity derives both slugs from name.
func NewCity(name string, lat, lng float64) City {
	short := slug.Normalize(name)
	return City{
		Name:      name,
		ShortSlug: short,
		LongSlug:  short + LongSlugSuffix,
		Lat:       lat,
		Lng:       lng,
	}
}

// Path returns the city's long-form site path.
func (c City) Path() string {
	return "/" + c.LongSlug
}

// DefaultCities returns the served cities in display order.
func DefaultCities() []City {
	return []City{
		NewCity("Lake City", 44.4430, -92.2668),
		NewCity("Red Wing", 44.5661, -92.5370),
		NewCity("Wabasha", 44.3710, -92.0510),
		NewCity("Frontenac", 44.5110, -92.3568),
		NewCity("Cottage Grove", 44.8277, -92.9438),
		NewCity("Hastings", 44.7443, -92.8605),
		NewCity("Lakeville", 44.6497, -93.2427),
	}
}
