package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sfzman/indextts-server/internal/api"
	apiMiddleware "github.com/sfzman/indextts-server/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", apiMiddleware.TraceIDHeader},
		ExposedHeaders:   []string{apiMiddleware.TraceIDHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	ttsHandler := api.NewTTSHandler(app.taskRunner, app.references)
	resultHandler := api.NewResultHandler(app.results)
	systemHandler := api.NewSystemHandler(app.taskRunner, app.metrics)

	r.Get("/health", systemHandler.Health)
	r.Get("/metrics", systemHandler.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tts", ttsHandler.CreateTask)

		r.Get("/tasks", ttsHandler.ListTasks)
		r.Get("/tasks/{id}", ttsHandler.GetTask)
		r.Delete("/tasks/{id}", ttsHandler.DeleteTask)

		r.Get("/results/{filename}", resultHandler.Download)
	})

	return r
}
