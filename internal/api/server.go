package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/improvedoc/internal/attrs"
	"github.com/dgallion1/improvedoc/internal/config"
	"github.com/dgallion1/improvedoc/internal/improve"
	"github.com/dgallion1/improvedoc/internal/pipeline"
)

// Server is the HTTP API server for improvedoc.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	proc         *improve.Processor
	defaults     attrs.Attributes
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. defaults are merged
// under the attributes of every request.
func NewServer(orch *pipeline.Orchestrator, proc *improve.Processor, defaults attrs.Attributes, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		proc:         proc,
		defaults:     defaults,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/process", s.handleProcess)
		r.Post("/api/render", s.handleRender)
		r.Post("/api/process/batch", s.handleBatchProcess)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/html", s.handleJobHTML)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
