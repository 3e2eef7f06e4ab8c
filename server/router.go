// Package server wires the HTTP surface: the middleware pipeline
// (trust/identity resolution, gates, rate limiting) and the route table.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/config"
	"github.com/dashport/dashport/dashconfig"
	"github.com/dashport/dashport/metrics"
	"github.com/dashport/dashport/server/handlers"
	"github.com/dashport/dashport/server/middleware"
	"github.com/dashport/dashport/session"
	"github.com/dashport/dashport/userstore"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	users userstore.Store,
	dash *dashconfig.Store,
	authn *auth.Authenticator,
	resolver *auth.IdentityResolver,
	sessions *session.Manager,
	auditor audit.Recorder,
	cfg *config.AppConfig,
	logger *zap.Logger,
) chi.Router {
	// Initialize metrics
	metrics.RegisterMetrics()

	// Per-endpoint-class limiters, keyed by resolved client address. The
	// login class additionally audits blocked attempts.
	loginLimit := middleware.NewLimiter("login", cfg.RateLimit.Login, logger).
		WithAudit(auditor, audit.ActionLoginBlockedIP)
	passwordLimit := middleware.NewLimiter("password", cfg.RateLimit.Password, logger)
	mutationLimit := middleware.NewLimiter("mutation", cfg.RateLimit.Mutation, logger)
	defaultLimit := middleware.NewLimiter("default", cfg.RateLimit.Default, logger)

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID())
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders())

	// Custom logging and metrics middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			metrics.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				r.URL.Path,
				http.StatusText(ww.Status()),
			).Inc()

			metrics.HTTPRequestDuration.WithLabelValues(
				r.Method,
				r.URL.Path,
			).Observe(duration.Seconds())

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", duration),
				zap.String("remote_addr", r.RemoteAddr))
		})
	})

	// Session decoding and identity resolution run on every request.
	r.Use(middleware.SessionContext(sessions))
	r.Use(middleware.Identity(resolver, logger))

	// Health check endpoint (no auth, no rate limiting)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			logger.Error("Failed to write health check response", zap.Error(err))
		}
	})

	// Metrics endpoint (no auth required)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Login is throttled per client; everything about a failed login is
		// deliberately generic.
		r.With(loginLimit.Middleware()).
			Post("/auth/login", handlers.Login(authn, sessions, auditor, logger))
		r.With(defaultLimit.Middleware()).
			Post("/auth/logout", handlers.Logout(sessions, auditor, logger))

		// Auth status is polled by the dashboard and exempt from rate
		// limiting regardless of origin.
		r.Get("/auth/status", handlers.Status(users, sessions, auditor, logger))

		// Read-gated surface: any authenticated or local principal.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logger))

			r.With(passwordLimit.Middleware()).
				Post("/auth/change-password", handlers.ChangePassword(users, sessions, auditor, cfg.Auth.MinPasswordLength, logger))
			r.With(defaultLimit.Middleware()).
				Put("/auth/profile", handlers.UpdateProfile(users, auditor, logger))

			// Config reads are polled frequently and exempt from limiting.
			r.Get("/config", handlers.GetDashboardConfig(dash, users, logger))
			r.With(defaultLimit.Middleware()).
				Get("/services", handlers.GetServices(dash, users, logger))
			r.With(defaultLimit.Middleware()).
				Get("/settings", handlers.GetSettings(dash, logger))
		})

		// Write-gated surface: administrators and local principals only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logger))

			r.With(defaultLimit.Middleware()).
				Get("/users", handlers.ListUsers(users, logger))
			r.With(defaultLimit.Middleware()).
				Get("/roles", handlers.ListRoles(users, logger))

			r.Group(func(r chi.Router) {
				r.Use(mutationLimit.Middleware())

				r.Post("/config", handlers.UpdateDashboardConfig(dash, logger))
				r.Post("/services", handlers.UpdateServices(dash, logger))
				r.Post("/settings", handlers.UpdateSettings(dash, logger))

				r.Post("/users", handlers.CreateUser(users, auditor, cfg.Auth.MinPasswordLength, logger))
				r.Put("/users/{username}", handlers.UpdateUser(users, auditor, cfg.Auth.MinPasswordLength, logger))
				r.Delete("/users/{username}", handlers.DeleteUser(users, auditor, logger))

				r.Post("/roles", handlers.CreateRole(users, auditor, logger))
				r.Put("/roles/{name}", handlers.UpdateRole(users, auditor, logger))
				r.Delete("/roles/{name}", handlers.DeleteRole(users, auditor, logger))
			})
		})
	})

	logger.Info("HTTP router configured successfully")

	return r
}
