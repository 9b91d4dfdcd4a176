// Package registry holds the immutable snapshots of known Cities and
// Providers.
//
// A Registry is built once per run, either from the provider data file with
// Load or from in-memory values with New, and is never mutated afterwards.
// Lookup indices are derived at construction time from the ordered source
// lists:
//
//   - city by slug, covering both the short ("lake-city") and long
//     ("lake-city-mn-snow-removal") forms
//   - provider by id
//   - provider by slug, where the first provider in source order to claim
//     a slug keeps it
//
// Source order is preserved by every accessor because it decides slug
// collisions during export.
package registry
