package registry

import (
	"strconv"

	"github.com/mnplowfinder/plowfinder/internal/slug"
)

// Provider is a listed snow-removal business. ID is its identity; the slug
// is derived from Name on demand and may collide with other providers.
type Provider struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	City            string   `json:"city"`
	ServiceAreas    []string `json:"serviceAreas"`
	Services        []string `json:"services,omitempty"`
	Residential     bool     `json:"residential,omitempty"`
	Commercial      bool     `json:"commercial,omitempty"`
	RuralDriveways  bool     `json:"ruralDriveways,omitempty"`
	TwentyFourSeven bool     `json:"twentyFourSeven,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Website         string   `json:"website,omitempty"`
	Description     string   `json:"description,omitempty"`
}

// Slug returns Normalize(Name).
func (p Provider) Slug() string {
	return slug.Normalize(p.Name)
}

// CanonicalPath returns /provider/<id>/<slug>. Only the id takes part in
// resolution; the slug segment is cosmetic and omitted when empty.
func (p Provider) CanonicalPath() string {
	path := "/provider/" + strconv.Itoa(p.ID)
	if s := p.Slug(); s != "" {
		path += "/" + s
	}
	return path
}

// Serves reports whether the provider is based in or lists city as a
// service area.
func (p Provider) Serves(city City) bool {
	if p.City == city.Name {
		return true
	}
	for _, area := range p.ServiceAreas {
		if area == city.Name {
			return true
		}
	}
	return false
}

func (p Provider) clone() Provider {
	p.ServiceAreas = append([]string(nil), p.ServiceAreas...)
	p.Services = append([]string(nil), p.Services...)
	return p
}
