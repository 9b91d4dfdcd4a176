package server

import (
	"encoding/json"
	"net/http"

	"github.com/mnplowfinder/plowfinder/internal/dev"
	"github.com/mnplowfinder/plowfinder/internal/fallback"
	"github.com/mnplowfinder/plowfinder/internal/registry"
	"github.com/mnplowfinder/plowfinder/internal/route"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setHandler(r, "healthz")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// handleSite serves the exported file for the path if there is one, and
// otherwise the shell resolved against the live snapshot. A route document
// left on disk by an earlier export is only served while its route still
// resolves.
func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot.Load()

	if file, ok := findExported(s.options.Root, r.URL.Path); ok {
		if file.route == "" || !snap.Classifier.Classify(file.route).NotFound() {
			setHandler(r, "static")
			s.serveFile(w, r, file)
			return
		}
	}

	setHandler(r, "fallback")

	res := snap.Classifier.Classify(r.URL.EscapedPath())
	s.options.Metrics.ObserveResolution(res.Kind.String())

	view := snap.Resolver.ViewFor(res)
	writeDocument(w, r, view.Status, s.decorate(view.ApplyHead(snap.Shell)))
}

// decorate applies dev-only changes to an outgoing document.
func (s *Server) decorate(doc []byte) []byte {
	if s.options.Hub == nil {
		return doc
	}
	return dev.InjectClient(doc)
}

// ResolveResponse is the /api/resolve payload.
type ResolveResponse struct {
	Path     string     `json:"path"`
	Kind     route.Kind `json:"kind"`
	Resource string     `json:"resource"`
	fallback.View

	// Providers lists the providers serving a resolved city.
	Providers []registry.Provider `json:"providers,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	setHandler(r, "api")

	path, ok := r.URL.Query()["path"]
	if !ok || len(path) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing path parameter"})
		return
	}

	snap := s.snapshot.Load()
	res := snap.Classifier.Classify(path[0])
	s.options.Metrics.ObserveResolution(res.Kind.String())

	resp := ResolveResponse{
		Path:     path[0],
		Kind:     res.Kind,
		Resource: res.Ref(),
		View:     snap.Resolver.ViewFor(res),
	}
	if res.Kind == route.KindCity {
		resp.Providers = snap.Registry.ProvidersForCity(res.City)
	}

	writeJSON(w, resp.Status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
