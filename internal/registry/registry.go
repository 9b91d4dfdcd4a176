package registry

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/mnplowfinder/plowfinder/internal/errors"
)

// Registry is an immutable snapshot of cities and providers with lookup
// indices. It is safe for concurrent use.
type Registry struct {
	cities    []City
	providers []Provider

	cityBySlug     map[string]int
	providerByID   map[int]int
	providerBySlug map[string]int
}

// New builds a registry from in-memory values. Providers must have unique,
// positive ids and a name.
func New(cities []City, providers []Provider) (*Registry, error) {
	r := &Registry{
		cities:         make([]City, len(cities)),
		providers:      make([]Provider, len(providers)),
		cityBySlug:     make(map[string]int, len(cities)*2),
		providerByID:   make(map[int]int, len(providers)),
		providerBySlug: make(map[string]int, len(providers)),
	}
	copy(r.cities, cities)

	for i, c := range r.cities {
		for _, s := range []string{c.ShortSlug, c.LongSlug} {
			if s == "" {
				continue
			}
			if _, taken := r.cityBySlug[s]; !taken {
				r.cityBySlug[s] = i
			}
		}
	}

	for i, p := range providers {
		if p.ID <= 0 {
			return nil, errors.New("E102").
				WithDetail(fmt.Sprintf("provider %q at index %d has non-positive id %d", p.Name, i, p.ID))
		}
		if p.Name == "" {
			return nil, errors.New("E102").
				WithDetail(fmt.Sprintf("provider with id %d has no name", p.ID))
		}
		if prev, dup := r.providerByID[p.ID]; dup {
			return nil, errors.New("E102").
				WithDetail(fmt.Sprintf("provider id %d is used by both %q and %q", p.ID, r.providers[prev].Name, p.Name)).
				WithSuggestion("Provider ids are permanent; assign the newer entry a fresh id")
		}

		r.providers[i] = p.clone()
		r.providerByID[p.ID] = i

		if s := p.Slug(); s != "" {
			if _, taken := r.providerBySlug[s]; !taken {
				r.providerBySlug[s] = i
			}
		}
	}

	return r, nil
}

// Load reads the provider data file at path and builds a registry with the
// given cities. A missing file is E100; a file that is not a JSON array of
// providers is E101; invalid ids are E102.
func Load(path string, cities []City) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E100").
			WithDetail("Could not read provider data at " + path).
			WithSuggestion("Set data.providers in plowfinder.json or pass --providers").
			Wrap(err)
	}

	providers, err := decodeProviders(path, data)
	if err != nil {
		return nil, err
	}

	return New(cities, providers)
}

func decodeProviders(path string, data []byte) ([]Provider, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("E101").
			WithDetail(path + " is empty; expected a JSON array of providers")
	}

	var providers []Provider
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&providers); err != nil {
		perr := errors.New("E101").Wrap(err)

		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case stderrors.As(err, &syntaxErr):
			line, col := position(data, syntaxErr.Offset)
			perr.WithLocation(path, line, col)
		case stderrors.As(err, &typeErr):
			line, col := position(data, typeErr.Offset)
			perr.WithLocation(path, line, col).
				WithSuggestion(fmt.Sprintf("Field %q expects a %s", typeErr.Field, typeErr.Type))
		}
		return nil, perr
	}
	if providers == nil {
		return nil, errors.New("E101").
			WithDetail(path + " must contain a JSON array of providers")
	}
	if dec.More() {
		return nil, errors.New("E101").
			WithDetail(path + " contains data after the provider array")
	}

	return providers, nil
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line = bytes.Count(before, []byte{'\n'}) + 1
	col = int(offset) - bytes.LastIndexByte(before, '\n')
	if col < 1 {
		col = 1
	}
	return line, col
}

// Cities returns the cities in source order.
func (r *Registry) Cities() []City {
	out := make([]City, len(r.cities))
	copy(out, r.cities)
	return out
}

// Providers returns the providers in source order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.providers))
	for i, p := range r.providers {
		out[i] = p.clone()
	}
	return out
}

// CityBySlug finds a city by its short or long slug.
func (r *Registry) CityBySlug(s string) (City, bool) {
	i, ok := r.cityBySlug[s]
	if !ok {
		return City{}, false
	}
	return r.cities[i], true
}

// ProviderByID finds a provider by id.
func (r *Registry) ProviderByID(id int) (Provider, bool) {
	i, ok := r.providerByID[id]
	if !ok {
		return Provider{}, false
	}
	return r.providers[i].clone(), true
}

// ProviderBySlug finds the first provider, in source order, whose name
// normalizes to s.
func (r *Registry) ProviderBySlug(s string) (Provider, bool) {
	i, ok := r.providerBySlug[s]
	if !ok {
		return Provider{}, false
	}
	return r.providers[i].clone(), true
}

// ProvidersForCity returns, in source order, the providers based in or
// serving city.
func (r *Registry) ProvidersForCity(city City) []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Serves(city) {
			out = append(out, p.clone())
		}
	}
	return out
}

// Len returns the number of cities and providers.
func (r *Registry) Len() (cities, providers int) {
	return len(r.cities), len(r.providers)
}
