package route

// StaticPage is a fixed page of the site.
type StaticPage struct {
	// Name identifies the page ("home", "about", ...).
	Name string

	// Slug is the reserved path segment; empty for home.
	Slug string

	// Title is the page's display title.
	Title string

	// ChangeFreq and Priority are advertised in the sitemap.
	ChangeFreq string
	Priority   string
}

// Path returns the page's site path.
func (p StaticPage) Path() string {
	return "/" + p.Slug
}

// Fixed pages, in export order.
var (
	PageHome         = StaticPage{Name: "home", Slug: "", Title: "Find Snow Removal Near You", ChangeFreq: "daily", Priority: "1.0"}
	PageAbout        = StaticPage{Name: "about", Slug: "about", Title: "About", ChangeFreq: "monthly", Priority: "0.6"}
	PagePartner      = StaticPage{Name: "partner", Slug: "partner", Title: "Partner With Us", ChangeFreq: "monthly", Priority: "0.6"}
	PageClaimListing = StaticPage{Name: "claim-listing", Slug: "claim-listing", Title: "Claim Your Listing", ChangeFreq: "monthly", Priority: "0.6"}
)

// StaticPages returns the closed set of fixed pages.
func StaticPages() []StaticPage {
	return []StaticPage{PageHome, PageAbout, PagePartner, PageClaimListing}
}

var staticBySlug = func() map[string]StaticPage {
	m := make(map[string]StaticPage)
	for _, p := range StaticPages() {
		if p.Slug != "" {
			m[p.Slug] = p
		}
	}
	return m
}()
