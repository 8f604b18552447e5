package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/casedesk-api/internal/config"
	"github.com/noah-isme/casedesk-api/internal/realtime"
	"github.com/noah-isme/casedesk-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string                  `json:"status"`
	Timestamp   time.Time               `json:"timestamp"`
	Service     string                  `json:"service"`
	Environment string                  `json:"environment"`
	Realtime    *realtime.RegistryStats `json:"realtime,omitempty"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, registry *realtime.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if registry != nil {
			stats := registry.Stats()
			payload.Realtime = &stats
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
