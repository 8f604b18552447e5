package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casedesk-api/internal/config"
	"github.com/noah-isme/casedesk-api/internal/handler"
	"github.com/noah-isme/casedesk-api/internal/realtime"
)

type healthEnvelope struct {
	Success bool                   `json:"success"`
	Data    handler.HealthResponse `json:"data"`
}

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{AppName: "Casedesk API", AppEnv: "test"}
	registry := realtime.NewRegistry(zerolog.Nop())

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, registry))

	resp := doRequest(t, app, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload healthEnvelope
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, "ok", payload.Data.Status)
	require.Equal(t, cfg.AppName, payload.Data.Service)
	require.Equal(t, cfg.AppEnv, payload.Data.Environment)
	require.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
	require.NotNil(t, payload.Data.Realtime)
	require.Zero(t, payload.Data.Realtime.Rooms)
}

func TestHealthCheckWithoutRegistry(t *testing.T) {
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "Casedesk API"}, nil))

	resp := doRequest(t, app, http.MethodGet, "/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload healthEnvelope
	decodeResponse(t, resp, &payload)
	require.Nil(t, payload.Data.Realtime)
}
