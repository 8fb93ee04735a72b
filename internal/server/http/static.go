package httpserver

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-chi/chi/v5"
)

// DefaultStaticFiles are the frontend files served when no whitelist is
// configured.
var DefaultStaticFiles = []string{"index.html", "script.js", "styles.css"}

// serveIndex handles GET /.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, "index.html")
}

// serveStatic handles GET /{file}. Only whitelisted root files are served.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	allowed := s.cfg.StaticFiles
	if len(allowed) == 0 {
		allowed = DefaultStaticFiles
	}
	if !slices.Contains(allowed, name) {
		s.logger.Debug().Str("file", name).Msg("static file not whitelisted")
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	s.serveFile(w, r, name)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	f, err := os.Open(filepath.Join(s.cfg.StaticDir, name))
	if err != nil {
		s.logger.Warn().Str("file", name).Str("directory", s.cfg.StaticDir).Msg("static file missing")
		http.Error(w, name+" not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, name+" not found", http.StatusNotFound)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}
