package fallback

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

// SiteName is the default name appended to page titles.
const SiteName = "MN Plow Finder"

// Page identifies which page component renders a view.
type Page int

const (
	PageNotFound Page = iota
	PageHome
	PageAbout
	PagePartner
	PageClaimListing
	PageCity
	PageProvider
)

var pageNames = [...]string{
	PageNotFound:     "not_found",
	PageHome:         "home",
	PageAbout:        "about",
	PagePartner:      "partner",
	PageClaimListing: "claim_listing",
	PageCity:         "city",
	PageProvider:     "provider",
}

func (p Page) String() string {
	if p < 0 || int(p) >= len(pageNames) {
		return fmt.Sprintf("Page(%d)", int(p))
	}
	return pageNames[p]
}

// MarshalText encodes the page by name.
func (p Page) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a page name.
func (p *Page) UnmarshalText(text []byte) error {
	for i, name := range pageNames {
		if name == string(text) {
			*p = Page(i)
			return nil
		}
	}
	return fmt.Errorf("fallback: unknown page %q", text)
}

// View is a resolved page.
type View struct {
	Page        Page               `json:"page"`
	City        *registry.City     `json:"city,omitempty"`
	Provider    *registry.Provider `json:"provider,omitempty"`
	Status      int                `json:"status"`
	Title       string             `json:"title"`
	Description string             `json:"description"`

	// Canonical is the absolute URL the page advertises. Providers always
	// advertise their id path, even when reached through a short URL.
	Canonical string `json:"canonical,omitempty"`
}

// Resolver maps paths to views.
type Resolver struct {
	classifier *route.Classifier
	siteURL    string
	siteName   string
}

// New creates a resolver. siteURL is the origin used for canonical URLs.
func New(classifier *route.Classifier, siteURL string) *Resolver {
	return &Resolver{
		classifier: classifier,
		siteURL:    strings.TrimSuffix(strings.TrimSpace(siteURL), "/"),
		siteName:   SiteName,
	}
}

// WithSiteName sets the name used in titles. Empty keeps SiteName.
func (r *Resolver) WithSiteName(name string) *Resolver {
	if name != "" {
		r.siteName = name
	}
	return r
}

// Resolve classifies path and builds its view.
func (r *Resolver) Resolve(path string) View {
	return r.ViewFor(r.classifier.Classify(path))
}

// ViewFor builds the view for an already classified resource.
func (r *Resolver) ViewFor(res route.Resolution) View {
	switch res.Kind {
	case route.KindStatic:
		return r.staticView(res.Page)
	case route.KindCity:
		city := res.City
		return View{
			Page:        PageCity,
			City:        &city,
			Status:      http.StatusOK,
			Title:       fmt.Sprintf("Snow Removal in %s, MN | %s", city.Name, r.siteName),
			Description: fmt.Sprintf("Find plowing and snow removal providers serving %s, Minnesota.", city.Name),
			Canonical:   r.siteURL + city.Path(),
		}
	case route.KindProvider:
		p := res.Provider
		desc := p.Description
		if desc == "" {
			desc = providerDescription(p)
		}
		return View{
			Page:        PageProvider,
			Provider:    &p,
			Status:      http.StatusOK,
			Title:       p.Name + " | " + r.siteName,
			Description: desc,
			Canonical:   r.siteURL + p.CanonicalPath(),
		}
	default:
		return View{
			Page:        PageNotFound,
			Status:      http.StatusNotFound,
			Title:       "Page Not Found | " + r.siteName,
			Description: "The page you were looking for does not exist.",
		}
	}
}

func (r *Resolver) staticView(page route.StaticPage) View {
	v := View{
		Status:    http.StatusOK,
		Title:     page.Title + " | " + r.siteName,
		Canonical: r.siteURL + page.Path(),
	}

	switch page.Name {
	case route.PageHome.Name:
		v.Page = PageHome
		v.Title = r.siteName + " | " + page.Title
		v.Description = "Compare plowing and snow removal services across southeastern Minnesota."
	case route.PageAbout.Name:
		v.Page = PageAbout
		v.Description = "About " + r.siteName + " and how listings are collected."
	case route.PagePartner.Name:
		v.Page = PagePartner
		v.Description = "Partner with " + r.siteName + " to reach homeowners and businesses this winter."
	case route.PageClaimListing.Name:
		v.Page = PageClaimListing
		v.Description = "Claim and update your snow removal business listing."
	}

	return v
}

func providerDescription(p registry.Provider) string {
	if p.City == "" {
		return p.Name + " provides snow removal in Minnesota."
	}
	return fmt.Sprintf("%s provides snow removal in %s, Minnesota.", p.Name, p.City)
}
