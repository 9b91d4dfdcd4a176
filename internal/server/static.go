package server

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticRelPath returns a sanitized path, relative to the export root, for
// a request path. The root itself is "". Traversal and absolute-path
// tricks are rejected so serving cannot escape the root.
func staticRelPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", true
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// "//etc/passwd" would survive prefix trimming as an absolute path.
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning so traversal is refused rather
	// than cleaned into a different path.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

// exportedFile is a file under the export root that serves a request.
type exportedFile struct {
	full string
	info os.FileInfo

	// route is the site path a route document was written for; empty for
	// anything that is not an index.html document.
	route string
}

// findExported returns the file under root that serves urlPath: the file
// itself, or index.html for a directory. ok is false when there is none.
func findExported(root, urlPath string) (exportedFile, bool) {
	if root == "" {
		return exportedFile{}, false
	}

	rel, ok := staticRelPath(urlPath)
	if !ok {
		return exportedFile{}, false
	}

	f := exportedFile{full: filepath.Join(root, filepath.FromSlash(rel))}
	info, err := os.Stat(f.full)
	if err != nil {
		return exportedFile{}, false
	}
	switch {
	case info.IsDir():
		f.full = filepath.Join(f.full, "index.html")
		if info, err = os.Stat(f.full); err != nil {
			return exportedFile{}, false
		}
		f.route = "/" + rel
	case path.Base(rel) == "index.html":
		f.route = "/"
		if dir := path.Dir(rel); dir != "." {
			f.route += dir
		}
	}
	if !info.Mode().IsRegular() {
		return exportedFile{}, false
	}

	f.info = info
	return f, true
}

// serveFile writes an exported file. HTML documents get the live reload
// client injected when a hub is configured.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, file exportedFile) {
	full, info := file.full, file.info
	applyCacheHeaders(w, full)

	f, err := os.Open(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	if s.options.Hub == nil || !strings.EqualFold(filepath.Ext(full), ".html") {
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		return
	}

	doc, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeDocument(w, r, http.StatusOK, s.decorate(doc))
}

// applyCacheHeaders lets bundler output under assets/ be cached forever
// and makes everything else revalidate, since route documents change on
// every export.
func applyCacheHeaders(w http.ResponseWriter, full string) {
	if strings.Contains(filepath.ToSlash(full), "/assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
}

func writeDocument(w http.ResponseWriter, r *http.Request, status int, doc []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(doc)
	}
}
