package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/casedesk-api/internal/dto"
	"github.com/noah-isme/casedesk-api/internal/middleware"
	"github.com/noah-isme/casedesk-api/internal/service"
	"github.com/noah-isme/casedesk-api/internal/utils"
)

// CaseHandler exposes the case workflow actions that notify participants.
type CaseHandler struct {
	service   service.CaseService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCaseHandler constructs a case handler.
func NewCaseHandler(service service.CaseService, validator *validator.Validate, logger zerolog.Logger) *CaseHandler {
	return &CaseHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "case_handler").Logger(),
	}
}

// Register binds case routes.
func (h *CaseHandler) Register(router fiber.Router) {
	router.Post("/:id/assign", middleware.RequireRole("admin"), h.assign)
	router.Patch("/:id/status", middleware.RequireRole("lawyer", "admin"), h.updateStatus)
}

func (h *CaseHandler) assign(c *fiber.Ctx) error {
	caseID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CaseAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	result, err := h.service.Assign(requestContext(c), caseID, payload.LawyerID, identityFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "assign case")
	}

	return utils.SendSuccess(c, "case assigned", result)
}

func (h *CaseHandler) updateStatus(c *fiber.Ctx) error {
	caseID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CaseStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	result, err := h.service.UpdateStatus(requestContext(c), caseID, payload.Status, identityFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "update case status")
	}

	return utils.SendSuccess(c, "case status updated", result)
}
