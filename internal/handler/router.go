// Package handler provides HTTP handlers for the Drivebox web interface.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/drivebox/internal/metrics"
)

// DatabaseChecker reports database liveness for the health endpoint.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	WebHandler *WebHandler
	Database   DatabaseChecker
	Metrics    *metrics.Metrics

	// StaticDir, when non-empty, is served read-only under /uploads/.
	StaticDir string

	Logger zerolog.Logger
}

// NewRouter builds the main HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/health", handleHealth(cfg.Database, cfg.Logger))

	if cfg.StaticDir != "" {
		// Read-only static serving of the upload directory under a fixed
		// prefix, alongside the authenticated download route.
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.StaticDir)))
		r.Method(http.MethodGet, "/uploads/*", fs)
	}

	cfg.WebHandler.RegisterRoutes(r)

	return r
}

// handleHealth responds with service liveness, including a database ping.
func handleHealth(db DatabaseChecker, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				logger.Error().Err(err).Msg("health check: database ping failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}
}
