package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lexhub/comms-audit/internal/api/http/handlers"
	"github.com/lexhub/comms-audit/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Audit          *handlers.AuditHandler
	Callbacks      *handlers.CallbackHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1/audit")

	// The transport authenticates with a shared callback token, not an
	// operator JWT.
	api.Post("/callbacks/delivery", cfg.Callbacks.DeliveryStatus)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	protected.Get("/logs", cfg.Audit.ListLogs)
	protected.Get("/logs/:id/thread", cfg.Audit.GetThread)
	protected.Post("/logs/:id/retry", cfg.Audit.RetryLog)
	protected.Get("/agents/:id/logs", cfg.Audit.AgentHistory)
	protected.Get("/analytics", cfg.Audit.Analytics)
}
