package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/casedesk-api/internal/config"
	"github.com/noah-isme/casedesk-api/internal/handler"
	"github.com/noah-isme/casedesk-api/internal/observability"
	"github.com/noah-isme/casedesk-api/internal/realtime"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Registry            *realtime.Registry
	RealtimeHandler     *handler.RealtimeHandler
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler
	CaseHandler         *handler.CaseHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Registry))

	// The websocket handshake authenticates on its own.
	if deps.RealtimeHandler != nil {
		deps.RealtimeHandler.Register(api.Group("/realtime"))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(api.Group("/chat", jwtMiddleware))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", jwtMiddleware))
	}

	if deps.CaseHandler != nil {
		deps.CaseHandler.Register(api.Group("/cases", jwtMiddleware))
	}
}
