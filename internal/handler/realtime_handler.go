package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/casedesk-api/internal/auth"
	"github.com/noah-isme/casedesk-api/internal/middleware"
	"github.com/noah-isme/casedesk-api/internal/realtime"
	"github.com/noah-isme/casedesk-api/internal/utils"
)

const (
	connectionLocalKey = "realtime_connection"
	requestCtxLocalKey = "request_ctx"
)

// RealtimeHandler upgrades authenticated clients onto the realtime gateway.
type RealtimeHandler struct {
	gateway *realtime.Gateway
	logger  zerolog.Logger
}

// NewRealtimeHandler creates a realtime handler instance.
func NewRealtimeHandler(gateway *realtime.Gateway, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		gateway: gateway,
		logger:  logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register binds the websocket route. The handshake is authenticated before the upgrade.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Use("/ws", h.handshake)
	router.Get("/ws", websocket.New(h.serve))
}

func (h *RealtimeHandler) handshake(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	conn, err := h.gateway.Connect(realtime.Handshake{
		AuthToken:     c.Query("token"),
		Authorization: c.Get(fiber.HeaderAuthorization),
	})
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthorized) {
			requestLogger(h.logger, c).Warn().Err(err).Msg("realtime handshake failed")
		}
		return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	c.Locals(connectionLocalKey, conn)
	// The fasthttp request context is recycled once the connection is hijacked.
	c.Locals(requestCtxLocalKey, middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c)))
	return c.Next()
}

func (h *RealtimeHandler) serve(ws *websocket.Conn) {
	conn, ok := ws.Locals(connectionLocalKey).(*realtime.Connection)
	if !ok || conn == nil {
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized"))
		_ = ws.Close()
		return
	}

	ctx, _ := ws.Locals(requestCtxLocalKey).(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}

	h.logger.Debug().
		Str("connection_id", conn.ID()).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Msg("realtime websocket upgraded")
	h.gateway.Serve(ctx, conn, ws)
}
