package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/casedesk-api/internal/dto"
	"github.com/noah-isme/casedesk-api/internal/service"
	"github.com/noah-isme/casedesk-api/internal/utils"
)

// ChatHandler exposes chat message and delivery-status endpoints.
type ChatHandler struct {
	service   service.ChatService
	logger    zerolog.Logger
	sendLimit fiber.Handler
}

// NewChatHandler creates a chat handler instance. sendLimit guards message posting and may be nil.
// Message payloads are normalised and validated by the service after the participant check.
func NewChatHandler(service service.ChatService, sendLimit fiber.Handler, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
		sendLimit: sendLimit,
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	if h.sendLimit != nil {
		router.Post("/rooms/:id/messages", h.sendLimit, h.send)
	} else {
		router.Post("/rooms/:id/messages", h.send)
	}
	router.Get("/rooms/:id/messages", h.history)
	router.Delete("/rooms/:id/messages", h.clearRoom)
	router.Patch("/rooms/:id/read", h.markRoomRead)
	router.Delete("/messages/:id", h.deleteMessage)
	router.Patch("/messages/:id/delivered", h.markDelivered)
	router.Patch("/messages/:id/read", h.markRead)
	router.Get("/unread-count", h.unreadCount)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SendMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	message, err := h.service.SendMessage(requestContext(c), userIDStringFromContext(c), roomID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "send chat message")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var query dto.MessageHistoryQuery
	if before := strings.TrimSpace(c.Query("before")); before != "" {
		parsed, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid before timestamp")
		}
		query.Before = &parsed
	}

	query.Limit, err = parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	messages, err := h.service.History(requestContext(c), roomID, userIDStringFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err, "load chat history")
	}

	return utils.SendSuccess(c, "chat history", messages)
}

func (h *ChatHandler) clearRoom(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	removed, err := h.service.ClearRoom(requestContext(c), roomID, userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "clear chat room")
	}

	return utils.SendSuccess(c, "chat room cleared", dto.BulkUpdateResponse{Updated: removed})
}

func (h *ChatHandler) markRoomRead(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	updated, err := h.service.MarkRoomRead(requestContext(c), roomID, userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "mark chat room read")
	}

	return utils.SendSuccess(c, "chat room marked as read", dto.BulkUpdateResponse{Updated: updated})
}

func (h *ChatHandler) deleteMessage(c *fiber.Ctx) error {
	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteMessage(requestContext(c), messageID, userIDStringFromContext(c)); err != nil {
		return respondError(c, h.logger, err, "delete chat message")
	}

	return utils.SendSuccess(c, "message deleted", nil)
}

func (h *ChatHandler) markDelivered(c *fiber.Ctx) error {
	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	status, err := h.service.MarkDelivered(requestContext(c), messageID, userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "mark message delivered")
	}

	return utils.SendSuccess(c, "message marked as delivered", status)
}

func (h *ChatHandler) markRead(c *fiber.Ctx) error {
	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	status, err := h.service.MarkRead(requestContext(c), messageID, userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "mark message read")
	}

	return utils.SendSuccess(c, "message marked as read", status)
}

func (h *ChatHandler) unreadCount(c *fiber.Ctx) error {
	var roomID *uint
	if raw := strings.TrimSpace(c.Query("room_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid room_id")
		}
		id := uint(parsed)
		roomID = &id
	}

	count, err := h.service.UnreadCount(requestContext(c), userIDStringFromContext(c), roomID)
	if err != nil {
		return respondError(c, h.logger, err, "count unread messages")
	}

	return utils.SendSuccess(c, "unread messages", dto.UnreadCountResponse{Count: count})
}
