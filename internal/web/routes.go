package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/clinicware/face-finder/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	identifyHandler := handlers.NewIdentifyHandler(s.identity, s.log)
	facesHandler := handlers.NewFacesHandler(s.identity, s.store, s.config.Embedding.Model, s.log)
	similarHandler := handlers.NewSimilarHandler(s.searcher, s.log)
	statsHandler := handlers.NewStatsHandler(s.store, s.identity.Threshold(), s.config.Embedding.Model, s.config.Embedding.Dim, s.log)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Face-based patient search
		r.Post("/patients/search/face", identifyHandler.Search)

		// Enrollment and face management
		r.Post("/patients/{id}/faces", facesHandler.Enroll)
		r.Get("/patients/{id}/faces", facesHandler.List)
		r.Delete("/patients/{id}/faces", facesHandler.Delete)

		// Diagnostics
		r.Post("/faces/similar", similarHandler.Find)
		r.Get("/stats", statsHandler.Get)
	})
}
