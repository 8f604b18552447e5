package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/noah-isme/casedesk-api/internal/broker"
	"github.com/noah-isme/casedesk-api/internal/dto"
	"github.com/noah-isme/casedesk-api/internal/models"
	"github.com/noah-isme/casedesk-api/internal/observability"
	"github.com/noah-isme/casedesk-api/internal/realtime"
	"github.com/noah-isme/casedesk-api/internal/repository"
)

// ChatService persists chat messages and tracks their per-recipient delivery status.
type ChatService interface {
	SendMessage(ctx context.Context, senderID string, roomID uint, req dto.SendMessageRequest) (dto.MessageResponse, error)
	History(ctx context.Context, roomID uint, requesterID string, query dto.MessageHistoryQuery) ([]dto.MessageResponse, error)
	MarkDelivered(ctx context.Context, messageID uint, recipientID string) (dto.MessageStatusResponse, error)
	MarkRead(ctx context.Context, messageID uint, recipientID string) (dto.MessageStatusResponse, error)
	MarkRoomRead(ctx context.Context, roomID uint, recipientID string) (int64, error)
	UnreadCount(ctx context.Context, recipientID string, roomID *uint) (int64, error)
	DeleteMessage(ctx context.Context, messageID uint, requesterID string) error
	ClearRoom(ctx context.Context, roomID uint, requesterID string) (int64, error)
	IsChatParticipant(ctx context.Context, roomID, userID string) (bool, error)
	RoomInvalidator
}

// RoomInvalidator drops cached participants of a chat room whose parties changed.
type RoomInvalidator interface {
	InvalidateRoom(ctx context.Context, roomID uint)
}

// ChatServiceOptions carries the optional collaborators of the chat service.
type ChatServiceOptions struct {
	Redis     *redis.Client
	CacheTTL  time.Duration
	Emitter   realtime.Emitter
	Publisher broker.Publisher
}

type chatService struct {
	repo      repository.ChatRepository
	cache     *chatRoomCache
	emitter   realtime.Emitter
	publisher broker.Publisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	loads     singleflight.Group
}

type messageSentEvent struct {
	ID          uint      `json:"id"`
	ChatRoomID  uint      `json:"chat_room_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewChatService creates the message and delivery-status engine.
func NewChatService(repo repository.ChatRepository, validate *validator.Validate, opts ChatServiceOptions, logger zerolog.Logger) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	emitter := opts.Emitter
	if emitter == nil {
		emitter = realtime.Relay{}
	}

	serviceLogger := logger.With().Str("component", "chat_service").Logger()

	return &chatService{
		repo:      repo,
		cache:     newChatRoomCache(opts.Redis, opts.CacheTTL, serviceLogger),
		emitter:   emitter,
		publisher: opts.Publisher,
		validator: validate,
		logger:    serviceLogger,
		tracer:    otel.Tracer("github.com/noah-isme/casedesk-api/internal/service/chat"),
		sanitizer: sanitizer,
	}
}

func (s *chatService) SendMessage(ctx context.Context, senderID string, roomID uint, req dto.SendMessageRequest) (dto.MessageResponse, error) {
	attrs := []attribute.KeyValue{
		attribute.Int64("chat.room_id", int64(roomID)),
		attribute.String("chat.sender_id", senderID),
		attribute.String("chat.type", req.Type),
	}
	ctx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(attrs...))
	defer span.End()

	room, err := s.room(ctx, roomID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	if !room.HasParticipant(senderID) {
		return dto.MessageResponse{}, ErrForbidden
	}

	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	var fileRef *string
	if req.FileRef != nil {
		if trimmed := strings.TrimSpace(*req.FileRef); trimmed != "" {
			fileRef = &trimmed
		}
	}
	if content == "" && fileRef == nil {
		return dto.MessageResponse{}, fmt.Errorf("%w: content or file reference is required", ErrInvalidPayload)
	}

	recipientID := room.Counterpart(senderID)
	message := models.Message{
		ChatRoomID: room.ID,
		SenderID:   senderID,
		Type:       req.Type,
		Content:    content,
		FileRef:    fileRef,
	}
	if err := s.repo.CreateMessage(ctx, &message, recipientID); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	observability.ChatMessagesSent().WithLabelValues(message.Type).Inc()

	s.emitter.Emit(realtime.ChatRoom(strconv.FormatUint(uint64(room.ID), 10)), realtime.NewMessage{
		ID:         message.ID,
		ChatRoomID: message.ChatRoomID,
		SenderID:   message.SenderID,
		Type:       message.Type,
		CreatedAt:  message.CreatedAt,
	})

	s.publish(ctx, messageSentEvent{
		ID:          message.ID,
		ChatRoomID:  message.ChatRoomID,
		SenderID:    message.SenderID,
		RecipientID: recipientID,
		Type:        message.Type,
		CreatedAt:   message.CreatedAt,
	})

	response := dto.NewMessageResponse(message)
	response.Status = models.MessageStatusSent
	return response, nil
}

func (s *chatService) History(ctx context.Context, roomID uint, requesterID string, query dto.MessageHistoryQuery) ([]dto.MessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if _, err := s.participantRoom(ctx, roomID, requesterID); err != nil {
		return nil, err
	}

	before := time.Time{}
	if query.Before != nil {
		before = *query.Before
	}

	messages, err := s.repo.ListByRoom(ctx, roomID, before, query.Limit)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

func (s *chatService) MarkDelivered(ctx context.Context, messageID uint, recipientID string) (dto.MessageStatusResponse, error) {
	return s.advance(ctx, "chat.mark_delivered", messageID, recipientID, models.MessageStatusDelivered, models.MessageStatusSent)
}

func (s *chatService) MarkRead(ctx context.Context, messageID uint, recipientID string) (dto.MessageStatusResponse, error) {
	return s.advance(ctx, "chat.mark_read", messageID, recipientID, models.MessageStatusRead, models.MessageStatusSent, models.MessageStatusDelivered)
}

func (s *chatService) advance(ctx context.Context, spanName string, messageID uint, recipientID, status string, from ...string) (dto.MessageStatusResponse, error) {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.Int64("chat.message_id", int64(messageID)),
		attribute.String("chat.recipient_id", recipientID),
	))
	defer span.End()

	message, err := s.repo.FindMessage(ctx, messageID)
	if err != nil {
		return dto.MessageStatusResponse{}, notFoundOr(err)
	}
	if _, err := s.participantRoom(ctx, message.ChatRoomID, recipientID); err != nil {
		return dto.MessageStatusResponse{}, err
	}
	if message.SenderID == recipientID {
		return dto.MessageStatusResponse{}, ErrForbidden
	}

	if _, err := s.repo.AdvanceStatus(ctx, messageID, recipientID, status, from...); err != nil {
		span.RecordError(err)
		return dto.MessageStatusResponse{}, err
	}

	current, err := s.repo.FindStatus(ctx, messageID, recipientID)
	if err != nil {
		return dto.MessageStatusResponse{}, notFoundOr(err)
	}
	return dto.NewMessageStatusResponse(current), nil
}

func (s *chatService) MarkRoomRead(ctx context.Context, roomID uint, recipientID string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "chat.mark_room_read", trace.WithAttributes(
		attribute.Int64("chat.room_id", int64(roomID)),
		attribute.String("chat.recipient_id", recipientID),
	))
	defer span.End()

	if _, err := s.participantRoom(ctx, roomID, recipientID); err != nil {
		return 0, err
	}

	updated, err := s.repo.MarkRoomRead(ctx, roomID, recipientID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return updated, nil
}

func (s *chatService) UnreadCount(ctx context.Context, recipientID string, roomID *uint) (int64, error) {
	if strings.TrimSpace(recipientID) == "" {
		return 0, fmt.Errorf("%w: recipient is required", ErrInvalidPayload)
	}
	return s.repo.CountUnread(ctx, recipientID, roomID)
}

func (s *chatService) DeleteMessage(ctx context.Context, messageID uint, requesterID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.delete_message", trace.WithAttributes(
		attribute.Int64("chat.message_id", int64(messageID)),
	))
	defer span.End()

	message, err := s.repo.FindMessage(ctx, messageID)
	if err != nil {
		return notFoundOr(err)
	}
	if message.SenderID != requesterID {
		return ErrForbidden
	}

	if err := s.repo.DeleteMessage(ctx, messageID); err != nil {
		span.RecordError(err)
		return notFoundOr(err)
	}

	s.logger.Info().Uint("message_id", messageID).Str("sender_id", requesterID).Msg("chat message deleted")
	return nil
}

func (s *chatService) ClearRoom(ctx context.Context, roomID uint, requesterID string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "chat.clear_room", trace.WithAttributes(
		attribute.Int64("chat.room_id", int64(roomID)),
	))
	defer span.End()

	if _, err := s.participantRoom(ctx, roomID, requesterID); err != nil {
		return 0, err
	}

	removed, err := s.repo.ClearRoom(ctx, roomID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.logger.Info().Uint("chat_room_id", roomID).Str("requested_by", requesterID).Int64("removed", removed).Msg("chat room cleared")
	return removed, nil
}

func (s *chatService) IsChatParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(roomID), 10, 64)
	if err != nil || id == 0 {
		return false, nil
	}

	room, err := s.room(ctx, uint(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return room.HasParticipant(userID), nil
}

func (s *chatService) participantRoom(ctx context.Context, roomID uint, userID string) (models.ChatRoom, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return models.ChatRoom{}, err
	}
	if !room.HasParticipant(userID) {
		return models.ChatRoom{}, ErrForbidden
	}
	return room, nil
}

func (s *chatService) room(ctx context.Context, roomID uint) (models.ChatRoom, error) {
	if room, ok := s.cache.get(ctx, roomID); ok {
		return room, nil
	}

	// Concurrent misses for the same room share one database read.
	loaded, err, _ := s.loads.Do(strconv.FormatUint(uint64(roomID), 10), func() (interface{}, error) {
		room, err := s.repo.FindRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		s.cache.set(ctx, room)
		return room, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ChatRoom{}, ErrNotFound
		}
		return models.ChatRoom{}, err
	}
	return loaded.(models.ChatRoom), nil
}

func (s *chatService) InvalidateRoom(ctx context.Context, roomID uint) {
	s.cache.evict(ctx, roomID)
}

func (s *chatService) publish(ctx context.Context, event messageSentEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, broker.TopicChatMessageSent, event); err != nil {
		s.logger.Warn().Err(err).Uint("message_id", event.ID).Msg("failed to publish chat event")
	}
}
