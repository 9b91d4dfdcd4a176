package route

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/slug"
	"github.com/mnplowfinder/plowfinder/pkg/routepath"
)

// ProviderPrefix is the first segment of canonical provider paths.
const ProviderPrefix = "provider"

// Kind is the type of resource a path denotes.
type Kind int

const (
	KindNotFound Kind = iota
	KindStatic
	KindCity
	KindProvider
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindCity:
		return "city"
	case KindProvider:
		return "provider"
	default:
		return "not_found"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, candidate := range []Kind{KindNotFound, KindStatic, KindCity, KindProvider} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("route: unknown kind %q", text)
}

// Rule names the precedence step that produced a resolution.
type Rule int

const (
	RuleNone Rule = iota
	RuleCanonicalProvider
	RuleStatic
	RuleCity
	RuleProviderSlug
)

// ResourceSet is one of the three resource families sharing the namespace.
type ResourceSet int

const (
	SetStatic ResourceSet = iota
	SetCities
	SetProviders
)

// String returns the set name.
func (s ResourceSet) String() string {
	switch s {
	case SetStatic:
		return "static"
	case SetCities:
		return "cities"
	case SetProviders:
		return "providers"
	default:
		return "unknown"
	}
}

// Priority is the order in which resource sets claim a bare slug. The
// classifier matches in this order and the exporter writes in this order,
// so an earlier set always wins a contested slug in both.
var Priority = []ResourceSet{SetStatic, SetCities, SetProviders}

// Resolution is the outcome of classifying a path. Exactly one of Page,
// City or Provider is meaningful, selected by Kind.
type Resolution struct {
	Kind     Kind
	Rule     Rule
	Page     StaticPage
	City     registry.City
	Provider registry.Provider
}

// NotFound reports whether the path resolved to nothing.
func (r Resolution) NotFound() bool {
	return r.Kind == KindNotFound
}

// Ref returns a stable identifier of the resolved resource, such as
// "static:about", "city:lake-city" or "provider:13".
func (r Resolution) Ref() string {
	switch r.Kind {
	case KindStatic:
		return "static:" + r.Page.Name
	case KindCity:
		return "city:" + r.City.ShortSlug
	case KindProvider:
		return "provider:" + strconv.Itoa(r.Provider.ID)
	default:
		return "not_found"
	}
}

// Name returns the display name of the resolved resource.
func (r Resolution) Name() string {
	switch r.Kind {
	case KindStatic:
		return r.Page.Title
	case KindCity:
		return r.City.Name
	case KindProvider:
		return r.Provider.Name
	default:
		return ""
	}
}

// Classifier resolves paths against a registry snapshot. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	reg      *registry.Registry
	reserved map[string]bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithReserved withholds names from provider slugs. A provider whose slug
// is reserved is reachable through its canonical path only. Names are
// normalized; those that normalize to nothing are ignored.
func WithReserved(names ...string) Option {
	return func(c *Classifier) {
		for _, n := range names {
			if s := slug.Normalize(n); s != "" {
				c.reserved[s] = true
			}
		}
	}
}

// NewClassifier returns a classifier over reg. The canonical prefix is
// always reserved.
func NewClassifier(reg *registry.Registry, opts ...Option) *Classifier {
	c := &Classifier{
		reg:      reg,
		reserved: map[string]bool{ProviderPrefix: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reserved reports whether the normalized slug s is withheld from providers.
func (c *Classifier) Reserved(s string) bool {
	return c.reserved[s]
}

// Classify resolves raw to a resource. It never fails: anything that does
// not match resolves to a NotFound resolution.
func (c *Classifier) Classify(raw string) Resolution {
	if raw == "" {
		return Resolution{}
	}

	path := routepath.RawPath(raw)
	if id, ok := canonicalID(path); ok {
		return c.classifyCanonical(id)
	}

	canon, err := routepath.Canonicalize(path)
	if err != nil {
		return Resolution{}
	}
	segments, err := routepath.Segments(canon)
	if err != nil {
		return Resolution{}
	}

	switch len(segments) {
	case 0:
		return Resolution{Kind: KindStatic, Rule: RuleStatic, Page: PageHome}
	case 1:
		return c.ClassifySlug(slug.Normalize(segments[0]))
	default:
		return Resolution{}
	}
}

// canonicalID splits a canonical provider path before any cleaning, so that
// nothing after the id can change the outcome. It returns the raw id segment
// when the first segment is the canonical prefix.
func canonicalID(path string) (string, bool) {
	prefix, rest, _ := strings.Cut(strings.TrimLeft(path, "/"), "/")
	if !strings.EqualFold(prefix, ProviderPrefix) {
		return "", false
	}
	id, _, _ := strings.Cut(strings.TrimLeft(rest, "/"), "/")
	return id, true
}

// classifyCanonical resolves /provider/<id>/... by id alone. It never falls
// through to slug matching, so a mistyped id cannot land on another
// provider.
func (c *Classifier) classifyCanonical(rawID string) Resolution {
	id, ok := parseID(rawID)
	if !ok {
		return Resolution{}
	}
	p, ok := c.reg.ProviderByID(id)
	if !ok {
		return Resolution{}
	}
	return Resolution{Kind: KindProvider, Rule: RuleCanonicalProvider, Provider: p}
}

// ClassifySlug resolves an already normalized single segment, walking the
// resource sets in Priority order.
func (c *Classifier) ClassifySlug(s string) Resolution {
	if s == "" {
		return Resolution{}
	}

	for _, set := range Priority {
		switch set {
		case SetStatic:
			if page, ok := staticBySlug[s]; ok {
				return Resolution{Kind: KindStatic, Rule: RuleStatic, Page: page}
			}
		case SetCities:
			if city, ok := c.reg.CityBySlug(s); ok {
				return Resolution{Kind: KindCity, Rule: RuleCity, City: city}
			}
		case SetProviders:
			if c.reserved[s] {
				continue
			}
			if p, ok := c.reg.ProviderBySlug(s); ok {
				return Resolution{Kind: KindProvider, Rule: RuleProviderSlug, Provider: p}
			}
		}
	}

	return Resolution{}
}

// Collision records a provider that cannot have its slug as a short path.
type Collision struct {
	// Slug is the contested slug.
	Slug string

	// Provider lost the slug.
	Provider registry.Provider

	// Owner is the Ref of the resource holding the slug, or "reserved".
	Owner string

	// OwnerName is the holder's display name; empty when reserved.
	OwnerName string
}

// Collisions lists, in source order, the providers whose slug resolves to
// something else: a static page, a city, an earlier provider or a reserved
// name. Such providers stay reachable through their canonical path only.
func (c *Classifier) Collisions() []Collision {
	var out []Collision
	for _, p := range c.reg.Providers() {
		s := p.Slug()
		if s == "" {
			continue
		}
		res := c.ClassifySlug(s)
		if res.Kind == KindProvider && res.Provider.ID == p.ID {
			continue
		}
		col := Collision{Slug: s, Provider: p, Owner: "reserved"}
		if !res.NotFound() {
			col.Owner = res.Ref()
			col.OwnerName = res.Name()
		}
		out = append(out, col)
	}
	return out
}

// parseID accepts a plain run of ASCII digits.
func parseID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}
