package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/casedesk-api/internal/auth"
	"github.com/noah-isme/casedesk-api/internal/dto"
	"github.com/noah-isme/casedesk-api/internal/models"
	"github.com/noah-isme/casedesk-api/internal/repository"
)

// CaseService applies case workflow changes that fan out to notifications and chat.
type CaseService interface {
	Assign(ctx context.Context, caseID uint, lawyerID string, actor auth.Identity) (dto.CaseResponse, error)
	UpdateStatus(ctx context.Context, caseID uint, status string, actor auth.Identity) (dto.CaseResponse, error)
}

type caseService struct {
	cases         repository.CaseRepository
	chats         repository.ChatRepository
	rooms         RoomInvalidator
	notifications NotificationService
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewCaseService constructs the case collaborator service. rooms may be nil
// when chat participants are not cached.
func NewCaseService(cases repository.CaseRepository, chats repository.ChatRepository, rooms RoomInvalidator, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) CaseService {
	return &caseService{
		cases:         cases,
		chats:         chats,
		rooms:         rooms,
		notifications: notifications,
		validator:     validate,
		logger:        logger.With().Str("component", "case_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/casedesk-api/internal/service/case"),
	}
}

func (s *caseService) Assign(ctx context.Context, caseID uint, lawyerID string, actor auth.Identity) (dto.CaseResponse, error) {
	lawyerID = strings.TrimSpace(lawyerID)
	if err := s.validator.Struct(dto.CaseAssignRequest{LawyerID: lawyerID}); err != nil {
		return dto.CaseResponse{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	ctx, span := s.tracer.Start(ctx, "cases.assign", trace.WithAttributes(
		attribute.Int64("case.id", int64(caseID)),
		attribute.String("case.lawyer_id", lawyerID),
	))
	defer span.End()

	if _, err := s.cases.FindByID(ctx, caseID); err != nil {
		return dto.CaseResponse{}, notFoundOr(err)
	}

	record, err := s.cases.AssignLawyer(ctx, caseID, lawyerID)
	if err != nil {
		span.RecordError(err)
		return dto.CaseResponse{}, notFoundOr(err)
	}

	// An approved case already has a room; it moves to the new lawyer.
	var roomID *uint
	if record.Status == models.CaseStatusApproved {
		room, err := s.openRoom(ctx, record)
		if err != nil {
			span.RecordError(err)
			return dto.CaseResponse{}, err
		}
		roomID = &room.ID
	}

	s.notify(ctx, lawyerID, actor.ID, record.ID, fmt.Sprintf("You have been assigned to case %s", record.Title))
	s.notify(ctx, record.ClientID, actor.ID, record.ID, fmt.Sprintf("A lawyer has been assigned to your case %s", record.Title))

	return caseResponse(record, roomID), nil
}

func (s *caseService) UpdateStatus(ctx context.Context, caseID uint, status string, actor auth.Identity) (dto.CaseResponse, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if err := s.validator.Struct(dto.CaseStatusRequest{Status: status}); err != nil {
		return dto.CaseResponse{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	ctx, span := s.tracer.Start(ctx, "cases.update_status", trace.WithAttributes(
		attribute.Int64("case.id", int64(caseID)),
		attribute.String("case.status", status),
	))
	defer span.End()

	current, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		return dto.CaseResponse{}, notFoundOr(err)
	}

	switch actor.Role {
	case "admin":
	case "lawyer":
		if current.LawyerID == nil || *current.LawyerID != actor.ID {
			return dto.CaseResponse{}, ErrForbidden
		}
	default:
		return dto.CaseResponse{}, ErrForbidden
	}

	if status == models.CaseStatusApproved && current.LawyerID == nil {
		return dto.CaseResponse{}, fmt.Errorf("%w: case has no assigned lawyer", ErrInvalidPayload)
	}

	record, err := s.cases.UpdateStatus(ctx, caseID, status)
	if err != nil {
		span.RecordError(err)
		return dto.CaseResponse{}, notFoundOr(err)
	}

	var roomID *uint
	if status == models.CaseStatusApproved {
		room, err := s.openRoom(ctx, record)
		if err != nil {
			span.RecordError(err)
			return dto.CaseResponse{}, err
		}
		roomID = &room.ID
	}

	s.notify(ctx, record.ClientID, actor.ID, record.ID, fmt.Sprintf("Your case %s is now %s", record.Title, strings.ReplaceAll(status, "_", " ")))

	return caseResponse(record, roomID), nil
}

func (s *caseService) openRoom(ctx context.Context, record models.Case) (models.ChatRoom, error) {
	room, err := s.chats.EnsureRoomForCase(ctx, record.ID, record.ClientID, *record.LawyerID)
	if err != nil {
		return models.ChatRoom{}, err
	}
	if s.rooms != nil {
		s.rooms.InvalidateRoom(ctx, room.ID)
	}
	return room, nil
}

func (s *caseService) notify(ctx context.Context, recipientID, senderID string, caseID uint, message string) {
	if s.notifications == nil || recipientID == "" {
		return
	}

	_, err := s.notifications.Notify(ctx, dto.NotificationCreateRequest{
		RecipientID: recipientID,
		SenderID:    senderID,
		CaseID:      &caseID,
		Message:     message,
		Metadata:    map[string]interface{}{"case_id": strconv.FormatUint(uint64(caseID), 10)},
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("case_id", caseID).Str("recipient_id", recipientID).Msg("failed to notify case participant")
	}
}

func caseResponse(record models.Case, roomID *uint) dto.CaseResponse {
	return dto.CaseResponse{
		ID:         record.ID,
		Title:      record.Title,
		ClientID:   record.ClientID,
		LawyerID:   record.LawyerID,
		Status:     record.Status,
		ChatRoomID: roomID,
	}
}
