package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/grantcarthew/spreadfire/internal/grid"
	"github.com/grantcarthew/spreadfire/internal/wsconn"
)

// Health is the body of GET /healthz.
type Health struct {
	Status       string `json:"status"`
	Peers        int    `json:"peers"`
	Calculations int    `json:"calculations"`
	Started      uint64 `json:"calculationsStarted"`
	Calculation  string `json:"calculation"`
	Uptime       string `json:"uptime"`
}

// routes builds the HTTP router.
func (s *Server) routes() (http.Handler, error) {
	assets, err := assetFS(s.config.Directory)
	if err != nil {
		return nil, err
	}
	static := newStaticHandler(assets, s.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", static.ServeHTTP)
	r.Handle("/static/*", http.StripPrefix("/static", static))
	r.Get("/grid.svg", s.handleGrid)
	r.Get("/healthz", s.handleHealth)
	r.Get(wsconn.EndpointPath, s.handleWebSocket)

	return r, nil
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := grid.SVG(w, s.config.Grid); err != nil {
		s.logger.Warn().Err(err).Msg("render grid")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	h := Health{
		Status:       "ok",
		Peers:        s.hub.count(),
		Calculations: s.calcs.count(),
		Started:      s.calcs.startedTotal(),
		Calculation:  s.calcs.getDuration().String(),
		Uptime:       s.config.Clock.Since(started).Round(time.Second).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.logger.Warn().Err(err).Msg("encode health")
	}
}
