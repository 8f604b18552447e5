package middleware_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casedesk-api/internal/middleware"
)

func TestCorrelationIDSources(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		fromCtx := middleware.CorrelationIDFromContext(c.UserContext())
		require.Equal(t, middleware.GetCorrelationID(c), fromCtx)
		return c.SendString(fromCtx)
	})

	cases := []struct {
		name   string
		target string
		header map[string]string
		want   string
	}{
		{name: "header", target: "/", header: map[string]string{middleware.CorrelationHeader: "corr-1"}, want: "corr-1"},
		{name: "request id", target: "/", header: map[string]string{fiber.HeaderXRequestID: "req-2"}, want: "req-2"},
		{name: "query", target: "/?correlation_id=ws-3", want: "ws-3"},
		{name: "header wins", target: "/?correlation_id=ws-3", header: map[string]string{middleware.CorrelationHeader: "corr-4"}, want: "corr-4"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tc.target, nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.Header.Get(middleware.CorrelationHeader))
		})
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Len(t, resp.Header.Get(middleware.CorrelationHeader), 36)
}

func TestRegisterExposesCorrelationHeader(t *testing.T) {
	app := fiber.New()
	middleware.Register(app, middleware.Config{AllowOrigins: []string{"https://desk.example.com"}})
	app.Get("/api/v1/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/ping", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://desk.example.com")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://desk.example.com", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	require.Contains(t, resp.Header.Get(fiber.HeaderAccessControlExposeHeaders), middleware.CorrelationHeader)
	require.NotEmpty(t, resp.Header.Get(middleware.CorrelationHeader))
}
