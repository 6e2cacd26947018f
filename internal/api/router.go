// Package api exposes the HTTP surface: run history, the latest draft, and
// manual run triggering.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/lamvh/trendwatch/internal/api/handlers"
	"github.com/lamvh/trendwatch/internal/storage"
)

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(store *storage.Store, trigger handlers.RunTrigger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	r.Get("/health", handlers.Health())

	r.Route("/api", func(api chi.Router) {
		api.Get("/runs", handlers.ListRuns(store))
		api.Get("/runs/{id}", handlers.GetRun(store))
		api.Get("/draft/latest", handlers.GetLatestDraft(store))
		api.Post("/run", handlers.TriggerRun(trigger))
	})

	return r
}
