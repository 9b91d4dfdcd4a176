// Package server serves an exported site and resolves everything the
// export does not cover.
//
// Requests for files that exist under the export directory are served
// from disk, exactly as a static host would. Any other GET falls back to
// the app shell, with head metadata and status chosen by
// fallback.Resolver against the current registry snapshot. The snapshot
// is swapped atomically on reload, so in-flight requests always see a
// single consistent registry.
//
// Routes:
//
//	GET /healthz               liveness check
//	GET /metrics               Prometheus exposition
//	GET /api/resolve?path=...  JSON view of a path
//	GET /_plowfinder/reload    live reload WebSocket (dev only)
//	GET /*                     export directory, then fallback
package server
