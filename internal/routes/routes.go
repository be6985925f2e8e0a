package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/haulgate/internal/handlers"
	"github.com/BradenHooton/haulgate/internal/middleware"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds per-route limits
type Config struct {
	LoginPerMinute  int
	ResendPerMinute int
	IPConfig        *pkghttp.IPConfig
}

// RegisterRoutes registers all application routes. db may be nil when the
// server runs on in-memory storage.
func RegisterRoutes(router chi.Router, authHandler *handlers.AuthHandler, cfg Config, db HealthChecker, metricsHandler http.Handler) {
	ipLimit := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.LoginPerMinute,
		IPConfig:          cfg.IPConfig,
	})
	resendLimit := middleware.RateLimitByEmail(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.ResendPerMinute,
		IPConfig:          cfg.IPConfig,
	})

	router.With(ipLimit).Post("/auth/login", authHandler.Login)
	router.With(ipLimit).Post("/auth/mfa/verify", authHandler.VerifyMFA)
	router.With(ipLimit, resendLimit).Post("/auth/otp/resend", authHandler.ResendOTP)

	router.Get("/health", healthHandler(db))
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}
}

func healthHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "memory"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	}
}
