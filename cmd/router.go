package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/angeloszaimis/provider-dispatch/internal/handler"
	"github.com/angeloszaimis/provider-dispatch/internal/metrics"
)

func setupRouter(dispatchHandler *handler.DispatchHandler, collector *metrics.Collector, origins []string, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID", "X-Dispatch-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", dispatchHandler.Health)
	r.Handle("/metrics", collector.Exporter().Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", dispatchHandler.ListProviders)
		r.Post("/providers/reset", dispatchHandler.ResetBreakers)
		r.Post("/dispatch", dispatchHandler.Dispatch)
		r.Get("/stats", collector.Handler())
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"The requested resource was not found"}`))
	})

	return r
}
