// Package fallback resolves request paths that have no exported document.
//
// A static host serves exported files directly. Everything else (providers
// added since the last export, short URLs lost to a slug collision, typos)
// lands on the app shell, and the shell resolves the path here. Resolution
// goes through route.Classifier so exported and runtime routing always
// agree.
//
// A View carries what the page needs to render: which page, the resource
// it shows, the HTTP status, and head metadata. ApplyHead writes that
// metadata into the shell document:
//
//	view := fallback.New(classifier, "https://mnplowfinder.com").Resolve(r.URL.Path)
//	w.WriteHeader(view.Status)
//	w.Write(view.ApplyHead(shell))
package fallback
