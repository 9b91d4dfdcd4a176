// Package route classifies raw site paths into the resource they denote.
//
// The site has a flat namespace shared by fixed pages, cities and
// providers. Classification applies a fixed precedence, first match wins:
//
//  1. /provider/<id>[/<anything>] resolves by id only. The prefix is matched
//     case-insensitively on the raw path and everything after the id is
//     cosmetic, dot segments and escapes included. An unknown or
//     non-numeric id is NotFound.
//  2. Static pages: "/" (home), about, partner, claim-listing.
//  3. Cities, by short or long slug.
//  4. Providers, by slug (first provider in source order), unless the slug
//     is reserved. "provider" is always reserved; the exporter adds the
//     top-level asset names.
//  5. NotFound.
//
// Static pages and cities are curated and always outrank slugs derived
// from provider names. The same ordering, declared once as Priority, drives
// the static exporter, so a path resolves identically whether it was served
// from the export tree or resolved at runtime.
package route
