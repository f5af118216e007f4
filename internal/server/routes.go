package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/appid"
	"github.com/yukyu/yukyu/internal/observability"
	"github.com/yukyu/yukyu/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	health := s.opts.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// Proxies the Prometheus exporter.
	s.router.Get("/metrics", MetricsHandler)

	if dash := s.opts.Dashboard; dash != nil {
		s.router.Route("/api/v1", func(r chi.Router) {
			r.Get("/employees", dash.Employees)
			r.Post("/employees/year/{year}", dash.SelectYear)
			r.Get("/notifications", dash.NotificationsList)
		})
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint registers the signal endpoint when <PREFIX>ADMIN_TOKEN is set.
func (s *Server) registerAdminEndpoint() {
	identity, _ := appid.Resolve(context.Background())
	envPrefix := appid.DefaultEnvPrefix
	if identity != nil && identity.EnvPrefix != "" {
		envPrefix = identity.EnvPrefix
	}

	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10, // per minute
		RateBurst: 5,
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
