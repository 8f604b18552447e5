package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/casedesk-api/internal/broker"
	"github.com/noah-isme/casedesk-api/internal/dto"
	"github.com/noah-isme/casedesk-api/internal/models"
	"github.com/noah-isme/casedesk-api/internal/observability"
	"github.com/noah-isme/casedesk-api/internal/realtime"
	"github.com/noah-isme/casedesk-api/internal/repository"
)

// NotificationService persists notifications and pushes them to the recipient's room.
type NotificationService interface {
	Notify(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	List(ctx context.Context, recipientID string, limit, offset int) ([]dto.NotificationResponse, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id uint, recipientID string) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	emitter   realtime.Emitter
	publisher broker.Publisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewNotificationService constructs a notification service. A nil emitter uses the process relay.
func NewNotificationService(repo repository.NotificationRepository, emitter realtime.Emitter, publisher broker.Publisher, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	if emitter == nil {
		emitter = realtime.Relay{}
	}

	return &notificationService{
		repo:      repo,
		emitter:   emitter,
		publisher: publisher,
		validator: validate,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/casedesk-api/internal/service/notification"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *notificationService) Notify(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	payload.RecipientID = strings.TrimSpace(payload.RecipientID)
	payload.SenderID = strings.TrimSpace(payload.SenderID)

	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, fmt.Errorf("%w: notification message empty after sanitization", ErrInvalidPayload)
	}

	ctx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(
		attribute.String("notification.recipient_id", payload.RecipientID),
		attribute.String("notification.sender_id", payload.SenderID),
	))
	defer span.End()

	model := models.Notification{
		RecipientID: payload.RecipientID,
		SenderID:    payload.SenderID,
		CaseID:      payload.CaseID,
		Message:     cleanMessage,
		Read:        false,
	}
	if len(payload.Metadata) > 0 {
		model.Metadata = datatypes.JSONMap(payload.Metadata)
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	observability.NotificationsCreated().Inc()

	room := realtime.NotificationRoom(model.RecipientID)
	s.emitter.Emit(room, realtime.NotificationCreated{
		ID:          model.ID,
		RecipientID: model.RecipientID,
		SenderID:    model.SenderID,
		CaseID:      model.CaseID,
		Message:     model.Message,
		CreatedAt:   model.CreatedAt,
		Read:        model.Read,
	})
	s.emitCount(ctx, model.RecipientID)

	response := dto.NewNotificationResponse(model)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, broker.TopicNotificationCreated, response); err != nil {
			s.logger.Warn().Err(err).Uint("notification_id", model.ID).Msg("failed to publish notification event")
		}
	}

	return response, nil
}

func (s *notificationService) List(ctx context.Context, recipientID string, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrInvalidPayload)
	}

	notifications, err := s.repo.ListByRecipient(ctx, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	if strings.TrimSpace(recipientID) == "" {
		return 0, fmt.Errorf("%w: recipient is required", ErrInvalidPayload)
	}
	return s.repo.CountUnread(ctx, recipientID)
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, recipientID string) (dto.NotificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("notification.recipient_id", recipientID),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(ctx, id, recipientID)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, notFoundOr(err)
	}

	s.emitCount(ctx, recipientID)
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	if strings.TrimSpace(recipientID) == "" {
		return 0, fmt.Errorf("%w: recipient is required", ErrInvalidPayload)
	}

	ctx, span := s.tracer.Start(ctx, "notifications.mark_all_read", trace.WithAttributes(
		attribute.String("notification.recipient_id", recipientID),
	))
	defer span.End()

	updated, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.emitCount(ctx, recipientID)
	return updated, nil
}

// emitCount pushes the recipient's unread count as read back from the store.
func (s *notificationService) emitCount(ctx context.Context, recipientID string) {
	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("recipient_id", recipientID).Msg("failed to recompute unread notifications")
		return
	}
	s.emitter.Emit(realtime.NotificationRoom(recipientID), realtime.NotificationCount{Count: count})
}
