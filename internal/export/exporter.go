package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/fallback"
	"github.com/mnplowfinder/plowfinder/internal/metrics"
	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
	"github.com/mnplowfinder/plowfinder/internal/sitemap"
	"github.com/mnplowfinder/plowfinder/internal/slug"
)

const tracerName = "github.com/mnplowfinder/plowfinder/internal/export"

// Names of the auxiliary files written at the output root.
const (
	IndexFile    = "index.html"
	NotFoundFile = "404.html"
	SitemapFile  = "sitemap.xml"
	RobotsFile   = "robots.txt"
	ManifestFile = "routes.json"
)

// Options configures the exporter.
type Options struct {
	// Output is the directory that receives the site. It is removed and
	// recreated on every export.
	Output string

	// Shell is the prerendered app document copied to every route.
	Shell string

	// Assets is an optional directory (the client bundle) copied into the
	// output before routes are written.
	Assets string

	// SiteURL is the origin used for canonical URLs and the sitemap.
	SiteURL string

	// SiteName is used in page titles. Default: fallback.SiteName.
	SiteName string

	// RewriteHead sets each document's title, description and canonical
	// link for the resource it is written for. Without it every document is
	// a byte-for-byte copy of the shell.
	RewriteHead bool

	// StrictCollisions fails the export with E132, after the tree is
	// written, when any provider lost its short URL.
	StrictCollisions bool

	// Logger receives per-export diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Tracer is used for per-pass spans. Default: the global provider.
	Tracer trace.Tracer

	// OnProgress is called with progress updates.
	OnProgress func(step string)

	// Now stamps the sitemap and manifest. Default: time.Now.
	Now func() time.Time
}

// Form names which URL form a route entry is.
type Form string

const (
	FormStatic    Form = "static"
	FormShort     Form = "short"
	FormLong      Form = "long"
	FormCanonical Form = "canonical"
)

// RouteEntry is one exported document.
type RouteEntry struct {
	// Path is the site path ("/lake-city").
	Path string `json:"path"`

	// File is the document's path relative to the output root.
	File string `json:"file"`

	Kind     route.Kind `json:"kind"`
	Form     Form       `json:"form"`
	Resource string     `json:"resource"`
}

// Skip records a provider short URL that was not written because the path
// was already taken.
type Skip struct {
	Path         string `json:"path"`
	ProviderID   int    `json:"providerId"`
	ProviderName string `json:"providerName"`

	// Owner is the resource that holds the path when it is a route, or
	// "reserved" when the path belongs to the asset tree.
	Owner string `json:"owner,omitempty"`

	// Canonical is where the provider remains reachable.
	Canonical string `json:"canonical"`
}

// Result describes a completed export.
type Result struct {
	// Duration is how long the export took.
	Duration time.Duration

	// Output is the absolute output directory.
	Output string

	// Routes lists every written document in write order.
	Routes []RouteEntry

	// Skipped lists providers that did not get a short URL.
	Skipped []Skip

	// Assets is the number of asset files copied.
	Assets int

	// SitemapURLs is the number of sitemap entries.
	SitemapURLs int
}

// Counts returns the number of routes per kind.
func (r *Result) Counts() map[route.Kind]int {
	counts := make(map[route.Kind]int)
	for _, e := range r.Routes {
		counts[e.Kind]++
	}
	return counts
}

// Manifest is the routes.json document.
type Manifest struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	SiteURL     string       `json:"siteUrl"`
	Routes      []RouteEntry `json:"routes"`
	Skipped     []Skip       `json:"skipped"`
}

// Exporter writes the static site for one registry snapshot.
type Exporter struct {
	reg      *registry.Registry
	resolver *fallback.Resolver
	options  Options
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates an exporter.
func New(reg *registry.Registry, options Options) *Exporter {
	if options.Now == nil {
		options.Now = time.Now
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := options.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Exporter{
		reg:      reg,
		resolver: fallback.New(route.NewClassifier(reg), options.SiteURL).WithSiteName(options.SiteName),
		options:  options,
		logger:   logger.With("component", "export"),
		tracer:   tracer,
	}
}

// ReservedNames lists the top-level entries of an asset directory that are
// already in slug form. Once copied into the output they occupy those short
// paths, so no provider may claim them.
func ReservedNames(assets string) ([]string, error) {
	entries, err := os.ReadDir(assets)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if name != "" && slug.Normalize(name) == name {
			names = append(names, name)
		}
	}
	return names, nil
}

// run holds per-export state.
type run struct {
	output string
	shell  []byte
	result *Result

	// classifier is the runtime view of the tree being written, with the
	// asset names reserved.
	classifier *route.Classifier

	// owners maps site paths to the resource written there; index maps
	// them to their entry in result.Routes.
	owners map[string]string
	index  map[string]int
}

// Export writes the site. On error the output directory may be partially
// written, except for E110 which is returned before anything is touched.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "export")
	defer span.End()

	result, err := e.export(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	result.Duration = time.Since(start)
	e.options.Metrics.ObserveExport(result.Duration)
	span.SetAttributes(
		attribute.Int("plowfinder.routes", len(result.Routes)),
		attribute.Int("plowfinder.skipped", len(result.Skipped)),
	)

	e.logger.Info("export complete",
		"output", result.Output,
		"routes", len(result.Routes),
		"skipped", len(result.Skipped),
		"duration", result.Duration)

	if e.options.StrictCollisions && len(result.Skipped) > 0 {
		return result, strictError(result.Skipped)
	}

	return result, nil
}

func (e *Exporter) export(ctx context.Context) (*Result, error) {
	e.progress("Reading shell document...")
	shell, err := os.ReadFile(e.options.Shell)
	if err != nil {
		return nil, errors.New("E110").
			WithDetail(fmt.Sprintf("Could not read %s", e.options.Shell)).
			WithSuggestion("Build the client so the shell exists, or set build.shell in plowfinder.json").
			Wrap(err)
	}

	output, err := filepath.Abs(e.options.Output)
	if err != nil {
		return nil, errors.New("E130").Wrap(err)
	}

	r := &run{
		output:     output,
		shell:      shell,
		result:     &Result{Output: output},
		classifier: route.NewClassifier(e.reg),
		owners:     make(map[string]string),
		index:      make(map[string]int),
	}

	e.progress("Cleaning output directory...")
	if err := os.RemoveAll(output); err != nil {
		return r.result, errors.New("E130").WithDetail("Could not remove " + output).Wrap(err)
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return r.result, errors.New("E130").WithDetail("Could not create " + output).Wrap(err)
	}

	if e.options.Assets != "" {
		e.progress("Copying assets...")
		n, err := copyTree(e.options.Assets, output)
		if err != nil {
			return r.result, errors.New("E130").WithDetail("Could not copy assets from " + e.options.Assets).Wrap(err)
		}
		r.result.Assets = n

		reserved, err := ReservedNames(e.options.Assets)
		if err != nil {
			return r.result, errors.New("E130").WithDetail("Could not list " + e.options.Assets).Wrap(err)
		}
		r.classifier = route.NewClassifier(e.reg, route.WithReserved(reserved...))
	}

	passes := []struct {
		name string
		step string
		fn   func(context.Context, *run) error
	}{
		{"priority", "Writing static and city routes...", e.priorityPass},
		{"providers", "Writing provider routes...", e.providerPass},
		{"verify", "Verifying routes...", e.verify},
		{"auxiliary", "Writing sitemap and manifest...", e.writeAuxiliary},
	}

	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return r.result, err
		}
		e.progress(p.step)
		if err := e.pass(ctx, p.name, r, p.fn); err != nil {
			return r.result, err
		}
	}

	return r.result, nil
}

func (e *Exporter) pass(ctx context.Context, name string, r *run, fn func(context.Context, *run) error) error {
	ctx, span := e.tracer.Start(ctx, "export."+name)
	defer span.End()

	before := len(r.result.Routes)
	err := fn(ctx, r)
	span.SetAttributes(attribute.Int("plowfinder.routes_written", len(r.result.Routes)-before))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// priorityPass writes static pages and city slugs in route.Priority order.
// Providers are handled by providerPass.
func (e *Exporter) priorityPass(ctx context.Context, r *run) error {
	for _, set := range route.Priority {
		switch set {
		case route.SetStatic:
			for _, page := range route.StaticPages() {
				res := route.Resolution{Kind: route.KindStatic, Rule: route.RuleStatic, Page: page}
				if err := e.write(r, page.Path(), FormStatic, res); err != nil {
					return err
				}
			}
		case route.SetCities:
			for _, city := range e.reg.Cities() {
				if err := ctx.Err(); err != nil {
					return err
				}
				res := route.Resolution{Kind: route.KindCity, Rule: route.RuleCity, City: city}
				if err := e.write(r, "/"+city.ShortSlug, FormShort, res); err != nil {
					return err
				}
				if err := e.write(r, city.Path(), FormLong, res); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// providerPass writes canonical provider documents and, where the path is
// free and resolves back to the provider, short ones. Registry order decides
// which of several same-slug providers gets the short URL.
func (e *Exporter) providerPass(ctx context.Context, r *run) error {
	for _, p := range e.reg.Providers() {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := route.Resolution{Kind: route.KindProvider, Provider: p}

		res.Rule = route.RuleCanonicalProvider
		if err := e.write(r, p.CanonicalPath(), FormCanonical, res); err != nil {
			return err
		}

		s := p.Slug()
		if s == "" {
			continue
		}

		short := "/" + s
		_, err := os.Stat(filepath.Join(r.output, filepath.FromSlash(s)))
		if err != nil && !os.IsNotExist(err) {
			return errors.New("E130").WithDetail("Could not inspect " + short).Wrap(err)
		}
		if err == nil || r.classifier.ClassifySlug(s).Ref() != res.Ref() {
			skip := Skip{
				Path:         short,
				ProviderID:   p.ID,
				ProviderName: p.Name,
				Owner:        r.owners[short],
				Canonical:    p.CanonicalPath(),
			}
			if skip.Owner == "" {
				skip.Owner = "reserved"
			}
			r.result.Skipped = append(r.result.Skipped, skip)
			e.options.Metrics.CollisionSkipped()
			e.logger.Warn("provider short URL taken",
				"path", short,
				"provider_id", p.ID,
				"provider", p.Name,
				"owner", skip.Owner,
				"canonical", skip.Canonical)
			continue
		}

		res.Rule = route.RuleProviderSlug
		if err := e.write(r, short, FormShort, res); err != nil {
			return err
		}
	}
	return nil
}

// verify classifies every written path again and fails on the first one
// that resolves elsewhere. A skipped short path must not resolve to the
// provider it was withheld from, or the runtime would route to a document
// that was never written.
func (e *Exporter) verify(_ context.Context, r *run) error {
	for _, entry := range r.result.Routes {
		got := r.classifier.Classify(entry.Path).Ref()
		if got != entry.Resource {
			return errors.New("E131").
				WithDetail(fmt.Sprintf("%s was written for %s but resolves to %s", entry.Path, entry.Resource, got))
		}
	}
	for _, skip := range r.result.Skipped {
		got := r.classifier.Classify(skip.Path)
		if got.Kind == route.KindProvider && got.Provider.ID == skip.ProviderID {
			return errors.New("E131").
				WithDetail(fmt.Sprintf("%s was skipped for provider %d but resolves to it", skip.Path, skip.ProviderID))
		}
	}
	return nil
}

func (e *Exporter) writeAuxiliary(_ context.Context, r *run) error {
	now := e.options.Now()

	set := sitemap.Build(e.reg, e.options.SiteURL, now)
	r.result.SitemapURLs = len(set.URLs)

	var buf bytes.Buffer
	if _, err := set.WriteTo(&buf); err != nil {
		return errors.New("E130").WithDetail("Could not encode sitemap").Wrap(err)
	}
	if err := e.writeFile(r, SitemapFile, buf.Bytes()); err != nil {
		return err
	}

	if err := e.writeFile(r, RobotsFile, []byte(sitemap.Robots(e.options.SiteURL))); err != nil {
		return err
	}

	if err := e.writeFile(r, NotFoundFile, e.document(r, route.Resolution{})); err != nil {
		return err
	}

	manifest := Manifest{
		GeneratedAt: now.UTC(),
		SiteURL:     e.options.SiteURL,
		Routes:      r.result.Routes,
		Skipped:     r.result.Skipped,
	}
	if manifest.Skipped == nil {
		manifest.Skipped = []Skip{}
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.New("E130").WithDetail("Could not encode route manifest").Wrap(err)
	}
	return e.writeFile(r, ManifestFile, append(data, '\n'))
}

// write stores the document for res at <path>/index.html.
func (e *Exporter) write(r *run, path string, form Form, res route.Resolution) error {
	rel := strings.Trim(path, "/")
	file := IndexFile
	if rel != "" {
		file = rel + "/" + IndexFile
	}

	if err := e.writeFile(r, file, e.document(r, res)); err != nil {
		return err
	}

	entry := RouteEntry{
		Path:     path,
		File:     file,
		Kind:     res.Kind,
		Form:     form,
		Resource: res.Ref(),
	}
	if i, seen := r.index[path]; seen {
		e.logger.Debug("route overwritten", "path", path, "previous", r.owners[path], "resource", entry.Resource)
		r.result.Routes[i] = entry
	} else {
		r.index[path] = len(r.result.Routes)
		r.result.Routes = append(r.result.Routes, entry)
	}
	r.owners[path] = entry.Resource
	e.options.Metrics.RouteWritten(res.Kind.String())
	return nil
}

func (e *Exporter) document(r *run, res route.Resolution) []byte {
	if !e.options.RewriteHead {
		return r.shell
	}
	return e.resolver.ViewFor(res).ApplyHead(r.shell)
}

func (e *Exporter) writeFile(r *run, rel string, data []byte) error {
	dst := filepath.Join(r.output, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.New("E130").WithDetail("Could not create " + filepath.Dir(dst)).Wrap(err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return errors.New("E130").WithDetail("Could not write " + dst).Wrap(err)
	}
	return nil
}

// progress reports export progress.
func (e *Exporter) progress(step string) {
	if e.options.OnProgress != nil {
		e.options.OnProgress(step)
	}
}

func strictError(skipped []Skip) error {
	lines := make([]string, 0, len(skipped))
	for _, s := range skipped {
		lines = append(lines, fmt.Sprintf("%s (provider %d, %s)", s.Path, s.ProviderID, s.ProviderName))
	}
	return errors.New("E132").
		WithDetail(fmt.Sprintf("%d provider short URL(s) skipped: %s", len(skipped), strings.Join(lines, "; "))).
		WithSuggestion("Rename the providers or disable build.strictCollisions to accept canonical-only URLs")
}

// copyTree copies every regular file under src into dst, preserving
// relative paths, and returns the number of files copied.
func copyTree(src, dst string) (int, error) {
	n := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// copyFile copies a file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
