package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Compass/internal/config"
	"github.com/MikeSquared-Agency/Compass/internal/recommend"
)

func NewRouter(svc *recommend.Service, cfg config.ServerConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", studentIDHeader},
			MaxAge:         300,
		}))
	}
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.RateLimitPerMinute))

	attempts := NewAttemptsHandler(svc, logger)
	cat := NewCatalogHandler(svc, logger)
	admin := NewAdminHandler(svc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(StudentIDMiddleware)

			r.Post("/attempts", attempts.Start)
			r.Get("/attempts", attempts.List)
			r.Post("/attempts/submit", attempts.Submit)
			r.Get("/attempts/{id}", attempts.Get)
			r.Post("/attempts/{id}/submit", attempts.Submit)

			r.Get("/questions", cat.Questions)
			r.Get("/majors", cat.Majors)
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminToken))
			r.Get("/stats", admin.Stats)
			r.Get("/admin/attempts", admin.Attempts)
			r.Get("/admin/attempts/{id}", admin.Attempt)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
