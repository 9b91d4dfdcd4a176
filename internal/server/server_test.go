package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mnplowfinder/plowfinder/internal/dev"
	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/export"
	"github.com/mnplowfinder/plowfinder/internal/metrics"
	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

const testShell = `<!DOCTYPE html>
<html><head><title>MN Plow Finder</title></head>
<body><div id="root"></div></body></html>`

var baseProviders = []registry.Provider{
	{ID: 13, Name: "Glander Excavating", City: "Lake City", ServiceAreas: []string{"Red Wing"}},
	{ID: 14, Name: "Glander Excavating", City: "Wabasha"},
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRegistry(t *testing.T, providers []registry.Provider) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.DefaultCities(), providers)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

// newTestServer exports baseProviders and serves the result.
func newTestServer(t *testing.T, hub *dev.Hub) (*Server, Options) {
	t.Helper()
	dir := t.TempDir()
	shell := filepath.Join(dir, "shell.html")
	if err := os.WriteFile(shell, []byte(testShell), 0644); err != nil {
		t.Fatal(err)
	}

	reg := newRegistry(t, baseProviders)
	out := filepath.Join(dir, "dist")
	_, err := export.New(reg, export.Options{
		Output:  out,
		Shell:   shell,
		SiteURL: "https://mnplowfinder.com",
		Logger:  quietLogger(),
	}).Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	opts := Options{
		Registry: reg,
		SiteURL:  "https://mnplowfinder.com",
		Root:     out,
		Shell:    shell,
		Hub:      hub,
		Logger:   quietLogger(),
		Metrics:  metrics.New(),
	}
	srv, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, opts
}

func get(t *testing.T, h http.Handler, method, target string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	res := rec.Result()
	body, _ := io.ReadAll(res.Body)
	return res, string(body)
}

func TestNew_MissingShell(t *testing.T) {
	_, err := New(Options{
		Registry: newRegistry(t, nil),
		Shell:    filepath.Join(t.TempDir(), "missing.html"),
		Logger:   quietLogger(),
	})
	if !errors.HasCode(err, "E110") {
		t.Fatalf("New error = %v, want E110", err)
	}
}

func TestServer_ServesExportedFiles(t *testing.T) {
	srv, opts := newTestServer(t, nil)

	tests := []struct {
		target string
		file   string
	}{
		{"/", "index.html"},
		{"/lake-city", "lake-city/index.html"},
		{"/lake-city/", "lake-city/index.html"},
		{"/glander-excavating", "glander-excavating/index.html"},
		{"/provider/14/glander-excavating", "provider/14/glander-excavating/index.html"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			res, body := get(t, srv.Handler(), http.MethodGet, tt.target)
			if res.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", res.StatusCode)
			}
			want, err := os.ReadFile(filepath.Join(opts.Root, filepath.FromSlash(tt.file)))
			if err != nil {
				t.Fatal(err)
			}
			if body != string(want) {
				t.Errorf("body differs from %s", tt.file)
			}
		})
	}

	res, body := get(t, srv.Handler(), http.MethodGet, "/sitemap.xml")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "<urlset") {
		t.Errorf("sitemap.xml: status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Errorf("sitemap Content-Type = %q", ct)
	}
}

func TestServer_FallbackResolvesLiveProviders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	added := append(append([]registry.Provider(nil), baseProviders...),
		registry.Provider{ID: 20, Name: "Snowbird Services", City: "Hastings"})
	if err := srv.Swap(newRegistry(t, added)); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	for _, target := range []string{"/snowbird-services", "/provider/20", "/provider/20/old-name", "/Snowbird-Services/"} {
		res, body := get(t, srv.Handler(), http.MethodGet, target)
		if res.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", target, res.StatusCode)
		}
		if !strings.Contains(body, "https://mnplowfinder.com/provider/20/snowbird-services") {
			t.Errorf("%s: body missing canonical URL:\n%s", target, body)
		}
	}
}

func TestServer_SwapHidesRemovedProviders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if err := srv.Swap(newRegistry(t, nil)); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	for _, target := range []string{
		"/glander-excavating",
		"/glander-excavating/index.html",
		"/provider/13/glander-excavating",
		"/provider/14/glander-excavating/",
	} {
		res, body := get(t, srv.Handler(), http.MethodGet, target)
		if res.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", target, res.StatusCode)
		}
		if !strings.Contains(body, "Page Not Found") {
			t.Errorf("%s: body is not the not-found shell:\n%s", target, body)
		}
	}

	for _, target := range []string{"/", "/lake-city", "/about/index.html", "/sitemap.xml"} {
		if res, _ := get(t, srv.Handler(), http.MethodGet, target); res.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", target, res.StatusCode)
		}
	}
}

func TestServer_SwapHandsSlugToNextProvider(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if err := srv.Swap(newRegistry(t, baseProviders[1:])); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	if res, _ := get(t, srv.Handler(), http.MethodGet, "/glander-excavating"); res.StatusCode != http.StatusOK {
		t.Errorf("/glander-excavating: status = %d, want 200", res.StatusCode)
	}
	if res, _ := get(t, srv.Handler(), http.MethodGet, "/provider/13/glander-excavating"); res.StatusCode != http.StatusNotFound {
		t.Errorf("/provider/13/glander-excavating: status = %d, want 404", res.StatusCode)
	}
}

func TestServer_ReservedNames(t *testing.T) {
	_, opts := newTestServer(t, nil)
	opts.Registry = newRegistry(t, []registry.Provider{{ID: 50, Name: "Assets"}})
	opts.Reserved = []string{"assets"}

	srv, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if res, _ := get(t, srv.Handler(), http.MethodGet, "/assets"); res.StatusCode != http.StatusNotFound {
		t.Errorf("/assets: status = %d, want 404", res.StatusCode)
	}
	if res, _ := get(t, srv.Handler(), http.MethodGet, "/provider/50/assets"); res.StatusCode != http.StatusOK {
		t.Errorf("/provider/50/assets: status = %d, want 200", res.StatusCode)
	}
}

func TestServer_UnknownPathIs404WithShell(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, target := range []string{"/nowhere", "/provider/999/x", "/a/b", "/../etc/passwd"} {
		res, body := get(t, srv.Handler(), http.MethodGet, target)
		if res.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", target, res.StatusCode)
		}
		if !strings.Contains(body, `<div id="root"></div>`) || !strings.Contains(body, "Page Not Found") {
			t.Errorf("%s: body is not the not-found shell:\n%s", target, body)
		}
	}
}

func TestServer_Head(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	res, body := get(t, srv.Handler(), http.MethodHead, "/nowhere")
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.StatusCode)
	}
	if body != "" {
		t.Errorf("HEAD body = %q, want empty", body)
	}
}

func TestServer_Resolve(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	res, body := get(t, srv.Handler(), http.MethodGet, "/api/resolve?path=/red-wing")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var got ResolveResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if got.Kind != route.KindCity || got.Resource != "city:red-wing" {
		t.Errorf("kind/resource = %v/%s, want city:red-wing", got.Kind, got.Resource)
	}
	if len(got.Providers) != 1 || got.Providers[0].ID != 13 {
		t.Errorf("providers = %+v, want provider 13 (service area)", got.Providers)
	}
	if got.Canonical != "https://mnplowfinder.com/red-wing-mn-snow-removal" {
		t.Errorf("canonical = %q", got.Canonical)
	}

	res, _ = get(t, srv.Handler(), http.MethodGet, "/api/resolve?path=/nowhere")
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("not found status = %d, want 404", res.StatusCode)
	}

	res, _ = get(t, srv.Handler(), http.MethodGet, "/api/resolve")
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("missing path status = %d, want 400", res.StatusCode)
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	res, body := get(t, srv.Handler(), http.MethodGet, "/healthz")
	if res.StatusCode != http.StatusOK || body != "ok" {
		t.Errorf("healthz = %d %q", res.StatusCode, body)
	}

	get(t, srv.Handler(), http.MethodGet, "/nowhere")

	_, body = get(t, srv.Handler(), http.MethodGet, "/metrics")
	for _, want := range []string{
		`plowfinder_resolutions_total{kind="not_found"} 1`,
		`plowfinder_http_requests_total{code="404",handler="fallback"} 1`,
		`plowfinder_http_requests_total{code="200",handler="healthz"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_InjectsReloadClient(t *testing.T) {
	hub := dev.NewHub(quietLogger())
	defer hub.Close()
	srv, _ := newTestServer(t, hub)

	for _, target := range []string{"/lake-city", "/nowhere"} {
		_, body := get(t, srv.Handler(), http.MethodGet, target)
		if !strings.Contains(body, dev.ReloadPath) {
			t.Errorf("%s: reload client not injected", target)
		}
	}

	_, body := get(t, srv.Handler(), http.MethodGet, "/robots.txt")
	if strings.Contains(body, dev.ReloadPath) {
		t.Error("reload client injected into a non-HTML file")
	}
}

func TestServer_SwapKeepsShellOnReadError(t *testing.T) {
	srv, opts := newTestServer(t, nil)

	if err := os.Remove(opts.Shell); err != nil {
		t.Fatal(err)
	}
	if err := srv.Swap(newRegistry(t, nil)); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if string(srv.Snapshot().Shell) != testShell {
		t.Error("shell lost after failed re-read")
	}
	if _, np := srv.Snapshot().Registry.Len(); np != 0 {
		t.Errorf("registry not swapped: %d providers", np)
	}
}

func TestStaticRelPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/", "", true},
		{"/lake-city", "lake-city", true},
		{"/lake-city/", "lake-city", true},
		{"/assets/index.js", "assets/index.js", true},
		{"/../etc/passwd", "", false},
		{"/a/./b", "", false},
		{"//etc/passwd", "", false},
		{"/a\\b", "", false},
		{"/a\x00b", "", false},
	}

	for _, tt := range tests {
		got, ok := staticRelPath(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("staticRelPath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFindExported(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"index.html", "about/index.html", "assets/index.js", "404.html"} {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(rel), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		target    string
		wantOK    bool
		wantRoute string
	}{
		{"/", true, "/"},
		{"/index.html", true, "/"},
		{"/about", true, "/about"},
		{"/about/", true, "/about"},
		{"/about/index.html", true, "/about"},
		{"/assets/index.js", true, ""},
		{"/404.html", true, ""},
		{"/assets", false, ""},
		{"/missing", false, ""},
	}

	for _, tt := range tests {
		got, ok := findExported(root, tt.target)
		if ok != tt.wantOK || got.route != tt.wantRoute {
			t.Errorf("findExported(%q) = route %q, %v; want %q, %v", tt.target, got.route, ok, tt.wantRoute, tt.wantOK)
		}
	}

	if _, ok := findExported("", "/"); ok {
		t.Error("findExported without a root should miss")
	}
}
