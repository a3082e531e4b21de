package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

// FrontendHandler serves the built single-page app. Paths that do not name
// a file fall back to index.html so client-side routes load.
type FrontendHandler struct {
	files  fs.FS
	server http.Handler
	logger *slog.Logger
}

// NewFrontendHandler creates a FrontendHandler over files.
func NewFrontendHandler(files fs.FS, logger *slog.Logger) *FrontendHandler {
	return &FrontendHandler{
		files:  files,
		server: http.FileServer(http.FS(files)),
		logger: logger,
	}
}

func (h *FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name != "" {
		if info, err := fs.Stat(h.files, name); err == nil && !info.IsDir() {
			if strings.HasPrefix(name, "assets/") {
				// Build output is content-hashed
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			h.server.ServeHTTP(w, r)
			return
		}
		// Missing files with an extension are real 404s, not app routes
		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
	}

	index, err := fs.ReadFile(h.files, "index.html")
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("failed to read index.html", "error", err)
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(index)
	}
}
