// Package api assembles the HTTP surface of the catalog service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dfedorov/statement-desk/internal/api/handlers"
	"github.com/dfedorov/statement-desk/internal/api/middleware"
	"github.com/dfedorov/statement-desk/internal/observability"
)

// NewRouter mounts all routes with the standard middleware chain.
func NewRouter(groups *handlers.GroupsHandler, session *handlers.SessionHandler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)
	r.Use(middleware.Owner)

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/category-groups", func(r chi.Router) {
			r.Get("/", groups.ListGroups)
			r.Post("/", groups.CreateGroup)

			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", groups.GetGroup)
				r.Patch("/", groups.RenameGroup)
				r.Delete("/", groups.DeleteGroup)
				r.Post("/activate", groups.ActivateGroup)
				r.Post("/apply-rules", groups.ApplyRules)
				r.Post("/categories", groups.AddCategory)
			})
		})

		r.Route("/categories/{categoryID}", func(r chi.Router) {
			r.Patch("/", groups.UpdateCategory)
			r.Delete("/", groups.DeleteCategory)
			r.Post("/rules", groups.AddRule)
		})

		r.Route("/rules/{ruleID}", func(r chi.Router) {
			r.Patch("/", groups.UpdateRule)
			r.Delete("/", groups.DeleteRule)
		})

		r.Post("/apply-rules", groups.ApplyRules)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", session.GetSession)
			r.Put("/", session.PutSession)
			r.Delete("/", session.DeleteSession)
		})
	})

	return r
}
