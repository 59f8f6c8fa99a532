// Package web exposes the face lookup subsystem over HTTP: face-based
// patient search, enrollment, similarity diagnostics and store stats.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/config"
	"github.com/clinicware/face-finder/internal/identity"
	"github.com/clinicware/face-finder/internal/store"
	"github.com/clinicware/face-finder/internal/web/middleware"
)

// Server represents the web server.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	identity   *identity.Service
	store      store.Store
	searcher   store.SimilaritySearcher
	log        zerolog.Logger
}

// NewServer creates a new web server. searcher may be nil when the storage
// backend does not support vector similarity search.
func NewServer(cfg *config.Config, svc *identity.Service, st store.Store, searcher store.SimilaritySearcher, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:   cfg,
		router:   r,
		identity: svc,
		store:    st,
		searcher: searcher,
		log:      log,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
