// Package export writes the static site: one prerendered shell document
// per exportable path, plus sitemap.xml, robots.txt, 404.html and a
// routes.json manifest.
//
// # Order of effects
//
// The shell is read before the output directory is touched, so a missing
// shell leaves any previous export in place. The output directory is then
// removed and recreated, which makes every export equivalent to a clean
// one.
//
// Paths are written in two passes. The priority pass writes static pages
// and both slugs of every city, unconditionally. The provider pass writes
// each provider's canonical /provider/<id>/<slug> document, then its short
// /<slug> document only if nothing exists there yet. A provider that loses
// its short URL this way is recorded in Result.Skipped and logged; it stays
// reachable through its canonical path.
//
// Before the auxiliary files are written every route is classified again
// with route.Classifier. A route that resolves to a different resource
// fails the export with E131.
package export
