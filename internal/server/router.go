package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouteMounter is implemented by modules that register their own routes.
type RouteMounter interface {
	Routes(r chi.Router, requireAuth func(http.Handler) http.Handler)
}

type RouterOptions struct {
	DB          Pinger
	Orders      RouteMounter
	RequireAuth func(http.Handler) http.Handler
	// Instrument wraps every request when metrics are enabled.
	Instrument     func(http.Handler) http.Handler
	MetricsHandler http.Handler
	Logger         *zap.Logger
}

func NewRouter(opts RouterOptions) http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	if opts.Instrument != nil {
		router.Use(opts.Instrument)
	}

	router.Get("/healthz", healthHandler(opts.DB, opts.Logger))
	if opts.MetricsHandler != nil {
		router.Handle("/metrics", opts.MetricsHandler)
	}

	opts.Orders.Routes(router, opts.RequireAuth)

	return router
}

type healthResponse struct {
	Status string `json:"status"`
}

func healthHandler(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				logger.Warn("health check: database unreachable", zap.Error(err))
				status, code = "unavailable", http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(healthResponse{Status: status})
	}
}
