// Package api wires the HTTP surface of the ArxivMind service.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/arxivmind/arxivmind/internal/api/handlers"
	"github.com/arxivmind/arxivmind/internal/api/middleware"
	"github.com/arxivmind/arxivmind/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(middleware.NewAPIKeyAuth().Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/health/ready", h.Readiness)
	r.Get("/version", versionHandler(cfg))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/papers", func(r chi.Router) {
			r.Post("/analyze", h.AnalyzePaper)
			r.Post("/compare", h.ComparePapers)
			r.Post("/insights", h.GenerateInsights)
			r.Post("/review", h.PeerReview)
			r.Post("/ingest", h.IngestPapers)
		})

		r.Post("/retrieve", h.Retrieve)

		r.Route("/arxiv", func(r chi.Router) {
			r.Get("/search", h.SearchArxiv)
			r.Get("/papers/{paperID}", h.GetArxivPaper)
		})

		r.Get("/usage", h.UsageStats)
		r.Get("/providers", h.Providers)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "arxivmind",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "arxivmind",
		})
	}
}
