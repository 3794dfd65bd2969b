package web

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rook-computer/watchface/internal/assets"
)

// NewRouter builds the standard router used by both the device and simulator:
// - /api/v1/* for the API
// - /frame.png for the latest frame
// - / for the web UI
//
// Callers may mount more routes on the result before serving it.
func NewRouter(cfg ServerConfig, deps APIV1Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	if cfg.DevMode {
		r.Use(WithDevCORS)
	}
	r.Route("/api/v1", func(api chi.Router) { RegisterAPIV1(api, deps) })
	r.Get("/frame.png", func(w http.ResponseWriter, req *http.Request) { handleFrame(w, req, deps.Frames) })
	r.Handle("/*", StaticUIHandler(cfg.StaticDir))
	return r
}

// StaticUIHandler serves either embedded UI assets or a directory.
func StaticUIHandler(dir string) http.Handler {
	if dir == "" {
		fileServer := http.FileServer(http.FS(assets.WebUI))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Clean path to avoid oddities.
			r.URL.Path = filepath.ToSlash(filepath.Clean("/" + r.URL.Path))
			fileServer.ServeHTTP(w, r)
		})
	}

	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return http.NotFoundHandler()
	}

	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = filepath.ToSlash(filepath.Clean("/" + r.URL.Path))
		fileServer.ServeHTTP(w, r)
	})
}
