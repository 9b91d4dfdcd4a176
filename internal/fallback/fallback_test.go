package fallback

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

const site = "https://mnplowfinder.com"

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	reg, err := registry.New(registry.DefaultCities(), []registry.Provider{
		{ID: 13, Name: "Glander Excavating", City: "Lake City"},
		{ID: 14, Name: "Glander Excavating", City: "Wabasha", Description: "Second crew."},
		{ID: 15, Name: "Red Wing"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(route.NewClassifier(reg), site+"/")
}

func TestResolve(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		path      string
		page      Page
		status    int
		canonical string
	}{
		{"/", PageHome, http.StatusOK, site + "/"},
		{"/about", PageAbout, http.StatusOK, site + "/about"},
		{"/partner/", PagePartner, http.StatusOK, site + "/partner"},
		{"/claim-listing", PageClaimListing, http.StatusOK, site + "/claim-listing"},
		{"/lake-city", PageCity, http.StatusOK, site + "/lake-city-mn-snow-removal"},
		{"/red-wing-mn-snow-removal", PageCity, http.StatusOK, site + "/red-wing-mn-snow-removal"},
		{"/glander-excavating", PageProvider, http.StatusOK, site + "/provider/13/glander-excavating"},
		{"/provider/14/anything", PageProvider, http.StatusOK, site + "/provider/14/glander-excavating"},
		{"/provider/15", PageProvider, http.StatusOK, site + "/provider/15/red-wing"},
		{"/provider/99/x", PageNotFound, http.StatusNotFound, ""},
		{"/nowhere", PageNotFound, http.StatusNotFound, ""},
		{"", PageNotFound, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v := r.Resolve(tt.path)
			if v.Page != tt.page {
				t.Errorf("Page = %v, want %v", v.Page, tt.page)
			}
			if v.Status != tt.status {
				t.Errorf("Status = %d, want %d", v.Status, tt.status)
			}
			if v.Canonical != tt.canonical {
				t.Errorf("Canonical = %q, want %q", v.Canonical, tt.canonical)
			}
			if v.Title == "" || v.Description == "" {
				t.Errorf("view missing head metadata: %+v", v)
			}
		})
	}
}

func TestResolve_CityBeatsProvider(t *testing.T) {
	v := newResolver(t).Resolve("/red-wing")
	if v.Page != PageCity || v.City == nil || v.City.Name != "Red Wing" {
		t.Errorf("Resolve(/red-wing) = %+v, want city Red Wing", v)
	}
	if v.Provider != nil {
		t.Error("city view should not carry a provider")
	}
}

func TestResolve_ProviderDescription(t *testing.T) {
	r := newResolver(t)

	if got := r.Resolve("/provider/14").Description; got != "Second crew." {
		t.Errorf("Description = %q, want listing description", got)
	}
	if got := r.Resolve("/provider/13").Description; !strings.Contains(got, "Lake City") {
		t.Errorf("Description = %q, want generated text naming the city", got)
	}
}

func TestView_JSON(t *testing.T) {
	data, err := json.Marshal(newResolver(t).Resolve("/provider/13"))
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["page"] != "provider" {
		t.Errorf("page = %v, want provider", got["page"])
	}
	if _, ok := got["city"]; ok {
		t.Error("city should be omitted for provider views")
	}
	if p, ok := got["provider"].(map[string]any); !ok || p["id"] != float64(13) {
		t.Errorf("provider = %v", got["provider"])
	}
}

func TestPage_String(t *testing.T) {
	if PageClaimListing.String() != "claim_listing" {
		t.Errorf("PageClaimListing = %q", PageClaimListing.String())
	}
	if Page(42).String() != "Page(42)" {
		t.Errorf("Page(42) = %q", Page(42).String())
	}
}

const shell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>MN Plow Finder</title>
<link rel="canonical" href="https://mnplowfinder.com/">
<script type="module" src="/assets/index.js"></script>
</head>
<body><div id="root"></div></body>
</html>`

func TestApplyHead(t *testing.T) {
	v := newResolver(t).Resolve("/glander-excavating")
	out := string(v.ApplyHead([]byte(shell)))

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Glander Excavating | MN Plow Finder</title>",
		`<link rel="canonical" href="https://mnplowfinder.com/provider/13/glander-excavating"/>`,
		`<meta name="description" content="Glander Excavating provides snow removal in Lake City, Minnesota."/>`,
		`<script type="module" src="/assets/index.js"></script>`,
		`<div id="root"></div>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "<title>") != 1 || strings.Count(out, `rel="canonical"`) != 1 {
		t.Errorf("head elements duplicated:\n%s", out)
	}
}

func TestApplyHead_NotFoundDropsCanonical(t *testing.T) {
	v := newResolver(t).Resolve("/nowhere")
	out := string(v.ApplyHead([]byte(shell)))

	if strings.Contains(out, "canonical") {
		t.Errorf("not-found page should not advertise a canonical URL:\n%s", out)
	}
	if !strings.Contains(out, "<title>Page Not Found | MN Plow Finder</title>") {
		t.Errorf("missing not-found title:\n%s", out)
	}
}

func TestApplyHead_BareShell(t *testing.T) {
	v := newResolver(t).Resolve("/about")
	out := string(v.ApplyHead([]byte(`<div id="root"></div>`)))

	if !strings.Contains(out, "<head><title>About | MN Plow Finder</title>") {
		t.Errorf("title not inserted into synthesized head:\n%s", out)
	}
	if !strings.Contains(out, `href="https://mnplowfinder.com/about"`) {
		t.Errorf("canonical not inserted:\n%s", out)
	}
}

func TestResolver_WithSiteName(t *testing.T) {
	r := newResolver(t).WithSiteName("Plow Finder Dev")
	if got := r.Resolve("/about").Title; got != "About | Plow Finder Dev" {
		t.Errorf("Title = %q", got)
	}
	if got := newResolver(t).WithSiteName("").Resolve("/about").Title; got != "About | "+SiteName {
		t.Errorf("empty name changed the title: %q", got)
	}
}
