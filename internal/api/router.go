package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(Instrument)

	r.Handle("/metrics", promhttp.Handler())

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)
		r.Get("/metrics", apiHandler.ListMetricsHandler)

		r.Get("/users", apiHandler.ListUsersHandler)
		r.Post("/users", apiHandler.CreateUserHandler)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", apiHandler.GetUserHandler)
			r.Get("/dashboard", apiHandler.DashboardHandler)
			r.Post("/entries", apiHandler.SubmitEntriesHandler)
			r.Get("/trends", apiHandler.TrendsHandler)
			r.Post("/ask", apiHandler.AskHandler)

			r.Put("/metrics/{metricName}", apiHandler.SetMetricHandler)
			r.Get("/metrics/{metricName}/analysis", apiHandler.AnalysisHandler)
		})
	})

	return r
}
