package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-registry/internal/web/handlers"
	"github.com/kozaktomas/face-registry/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	registerHandler := handlers.NewRegisterHandler(s.engine)
	searchHandler := handlers.NewSearchHandler(s.engine)
	identitiesHandler := handlers.NewIdentitiesHandler(s.engine)
	toolsHandler := handlers.NewToolsHandler(s.config, s.engine)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPIKey(s.config.Server.APIKey))

			r.Post("/register", registerHandler.Register)
			r.Post("/search", searchHandler.Search)
			r.Get("/identities", identitiesHandler.List)
			r.Get("/info", toolsHandler.Info)
			r.Delete("/clear", toolsHandler.Clear)
		})
	})
}
