package chi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SPA serves the built frontend: an existing file is served as-is, anything
// else falls back to index.html so client-side routing works on reload.
func (s *Server) SPA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/")
	if rel != "" && !strings.Contains(rel, "..") {
		path := filepath.Join(s.buildDir, filepath.FromSlash(rel))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
	}

	index := filepath.Join(s.buildDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeError(w, http.StatusNotFound, "index.html not found; build the frontend first")
		return
	}
	http.ServeFile(w, r, index)
}
