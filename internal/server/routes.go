package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/providers", s.listProviders)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Post("/", s.startSession)
			r.Delete("/", s.stopAllSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Delete("/", s.stopSession)
				r.Post("/messages", s.sendMessage)
				r.Get("/history", s.getHistory)
			})
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.getConfig)
			r.Post("/", s.updateConfig)
		})

		r.Post("/compare", s.compareProviders)
	})
}
