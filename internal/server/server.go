// Package server exposes the orchestrator's surface over HTTP. It is a
// thin JSON layer: every route delegates to the orchestrator and formats
// the outcome.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/conductor-ai/conductor/internal/logging"
	"github.com/conductor-ai/conductor/internal/orchestrator"
)

// Config holds server configuration.
type Config struct {
	Port        int
	EnableCORS  bool
	ReadTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:        8080,
		EnableCORS:  true,
		ReadTimeout: 30 * time.Second,
	}
}

// Server is the HTTP front end over one orchestrator.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	orch    *orchestrator.Orchestrator
	log     zerolog.Logger
}

// New creates a server around an orchestrator.
func New(cfg *Config, orch *orchestrator.Orchestrator) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	s := &Server{
		config: cfg,
		router: r,
		orch:   orch,
		log:    logging.For("server"),
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: s.config.ReadTimeout,
	}
	s.log.Info().Int("port", s.config.Port).Msg("http server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and every session it manages.
func (s *Server) Shutdown(ctx context.Context) error {
	s.orch.StopAllSessions(ctx)
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
