package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/casedesk-api/internal/dto"
	"github.com/noah-isme/casedesk-api/internal/service"
	"github.com/noah-isme/casedesk-api/internal/utils"
)

// NotificationHandler exposes the caller's notification inbox.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/unread-count", h.unreadCount)
	router.Patch("/read-all", h.markAllRead)
	router.Patch("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	notifications, err := h.service.List(requestContext(c), userIDStringFromContext(c), limit, offset)
	if err != nil {
		return respondError(c, h.logger, err, "list notifications")
	}

	return utils.SendSuccess(c, "notifications", notifications)
}

func (h *NotificationHandler) unreadCount(c *fiber.Ctx) error {
	count, err := h.service.UnreadCount(requestContext(c), userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "count unread notifications")
	}

	return utils.SendSuccess(c, "unread notifications", dto.UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	notification, err := h.service.MarkRead(requestContext(c), id, userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "mark notification read")
	}

	return utils.SendSuccess(c, "notification marked as read", notification)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	updated, err := h.service.MarkAllRead(requestContext(c), userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "mark all notifications read")
	}

	return utils.SendSuccess(c, "notifications marked as read", dto.BulkUpdateResponse{Updated: updated})
}
