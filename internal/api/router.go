package api

import (
	"net/http"

	"github.com/Rrens/chatdesk/internal/api/handler"
	customMiddleware "github.com/Rrens/chatdesk/internal/api/middleware"
	"github.com/Rrens/chatdesk/internal/config"
	"github.com/Rrens/chatdesk/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, manager *session.Manager, parser *session.TokenParser) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMiddleware := customMiddleware.NewAuthMiddleware(parser)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(manager))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/notifications", handler.Notifications(manager.Feed()))
			r.Post("/cache/flush", handler.FlushCache(manager))

			r.Route("/chatbots/{chatbotID}", func(r chi.Router) {
				r.Use(customMiddleware.WorkspaceContext(manager))

				r.Route("/threads", func(r chi.Router) {
					r.Get("/", handler.ListThreads)
					r.Post("/bulk", handler.BulkThreads)

					r.Route("/{threadID}", func(r chi.Router) {
						r.Get("/", handler.GetThread)
						r.Patch("/", handler.UpdateThread)
						r.Post("/tags", handler.AddTag)
						r.Delete("/tags/{tag}", handler.RemoveTag)
						r.Patch("/messages/{messageID}/reaction", handler.ReactToMessage)
					})
				})

				r.Route("/visitors", func(r chi.Router) {
					r.Get("/", handler.ListVisitors)

					r.Route("/{visitorID}", func(r chi.Router) {
						r.Patch("/", handler.UpdateVisitor)
						r.Put("/notes", handler.SaveNotes)
						r.Get("/threads", handler.VisitorThreads)
						r.Post("/threads/more", handler.MoreVisitorThreads)
					})
				})
			})
		})
	})

	return r
}
