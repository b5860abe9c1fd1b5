package server

import (
	"bytes"
	"embed"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

//go:embed assets
var embeddedAssets embed.FS

// assetFS returns the page assets: the directory if one is configured,
// otherwise the copy compiled into the binary.
func assetFS(directory string) (fs.FS, error) {
	if directory != "" {
		return os.DirFS(directory), nil
	}
	return fs.Sub(embeddedAssets, "assets")
}

// indexFiles are tried in order when a directory is requested.
var indexFiles = []string{"index.html", "index.htm", "default.html", "home.html"}

// newStaticHandler creates an HTTP handler for serving files from root.
func newStaticHandler(root fs.FS, logger zerolog.Logger) http.Handler {
	return &staticHandler{
		root:   root,
		logger: logger,
	}
}

// staticHandler serves files from a file system.
type staticHandler struct {
	root   fs.FS
	logger zerolog.Logger
}

// ServeHTTP implements http.Handler for static file serving.
func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Only allow GET and HEAD
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	// Clean path to prevent directory traversal
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		h.logger.Debug().Str("path", r.URL.Path).Msg("403 forbidden")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := fs.Stat(h.root, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.logger.Debug().Str("path", r.URL.Path).Msg("404 not found")
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("stat failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		found := false
		for _, indexFile := range indexFiles {
			indexName := path.Join(name, indexFile)
			if _, err := fs.Stat(h.root, indexName); err == nil {
				name = indexName
				found = true
				break
			}
		}
		if !found {
			// Directory listing disabled
			h.logger.Debug().Str("path", r.URL.Path).Msg("404 directory without index file")
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
	}

	// Disable caching
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	serveFile(w, r, h.root, name)

	h.logger.Debug().Str("path", r.URL.Path).Str("file", name).Dur("took", time.Since(start)).Msg("served")
}

// serveFile writes one file. http.ServeFileFS would redirect any request
// ending in /index.html, so the content is served directly.
func serveFile(w http.ResponseWriter, r *http.Request, root fs.FS, name string) {
	f, err := root.Open(name)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(name), info.ModTime(), rs)
		return
	}

	data, err := fs.ReadFile(root, name)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, path.Base(name), info.ModTime(), bytes.NewReader(data))
}
