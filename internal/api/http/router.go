package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-engine/internal/api/http/handlers"
	"github.com/spec-kit/feedback-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Cases          *handlers.CasesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// The detection pipeline authenticates with its API key.
	app.Post("/cases", cfg.AuthMiddleware.HandleDetectorKey, cfg.Cases.CreateCase)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.RoleAgent, auth.RoleAdmin))
	protected.Get("/cases", cfg.Cases.ListCases)
	protected.Get("/cases/:id", cfg.Cases.GetCase)
	protected.Post("/cases/:id/actions", cfg.Cases.PerformAction)
	protected.Get("/metrics/recovery", cfg.Cases.RecoveryMetrics)
}
