// Package sitemap builds the sitemap.xml and robots.txt documents that
// accompany the static export.
package sitemap

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

// Namespace is the sitemap protocol namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Change frequency and priority advertised for generated resources.
const (
	cityChangeFreq     = "weekly"
	cityPriority       = "0.7"
	providerChangeFreq = "weekly"
	providerPriority   = "0.8"
)

// URL is one <url> entry.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// URLSet is the sitemap document.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Build lists one absolute URL per static page, city and provider, in
// route.Priority order. Cities are listed under their long slug and
// providers under their canonical id path; short provider URLs are never
// listed because they are not guaranteed to exist.
func Build(reg *registry.Registry, baseURL string, now time.Time) URLSet {
	base := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	lastMod := now.UTC().Format(time.DateOnly)

	set := URLSet{XMLNS: Namespace}
	for _, rs := range route.Priority {
		switch rs {
		case route.SetStatic:
			for _, p := range route.StaticPages() {
				set.URLs = append(set.URLs, URL{
					Loc:        joinURL(base, p.Path()),
					LastMod:    lastMod,
					ChangeFreq: p.ChangeFreq,
					Priority:   p.Priority,
				})
			}
		case route.SetCities:
			for _, c := range reg.Cities() {
				set.URLs = append(set.URLs, URL{
					Loc:        joinURL(base, c.Path()),
					LastMod:    lastMod,
					ChangeFreq: cityChangeFreq,
					Priority:   cityPriority,
				})
			}
		case route.SetProviders:
			for _, p := range reg.Providers() {
				set.URLs = append(set.URLs, URL{
					Loc:        joinURL(base, p.CanonicalPath()),
					LastMod:    lastMod,
					ChangeFreq: providerChangeFreq,
					Priority:   providerPriority,
				})
			}
		}
	}

	return set
}

// WriteTo writes the document with an XML header.
func (s URLSet) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(s); err != nil {
		return 0, err
	}
	buf.WriteByte('\n')

	return buf.WriteTo(w)
}

// Robots returns a robots.txt body that allows everything and points
// crawlers at the sitemap.
func Robots(baseURL string) string {
	base := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")

	lines := []string{
		"User-agent: *",
		"Allow: /",
	}
	if base != "" {
		lines = append(lines, "Sitemap: "+joinURL(base, "/sitemap.xml"))
	}

	return strings.Join(lines, "\n") + "\n"
}

func joinURL(base, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
