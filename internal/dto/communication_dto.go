package dto

import (
	"time"

	"github.com/noah-isme/casedesk-api/internal/models"
)

// SendMessageRequest is the payload for posting a chat message.
type SendMessageRequest struct {
	Type    string  `json:"type" validate:"required,oneof=text file image"`
	Content string  `json:"content" validate:"max=4000"`
	FileRef *string `json:"file_ref" validate:"omitempty,max=512"`
}

// MessageResponse is the serialized representation of a chat message.
type MessageResponse struct {
	ID         uint      `json:"id"`
	ChatRoomID uint      `json:"chat_room_id"`
	SenderID   string    `json:"sender_id"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	FileRef    *string   `json:"file_ref,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:         message.ID,
		ChatRoomID: message.ChatRoomID,
		SenderID:   message.SenderID,
		Type:       message.Type,
		Content:    message.Content,
		FileRef:    message.FileRef,
		CreatedAt:  message.CreatedAt,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// MessageHistoryQuery filters chat history.
type MessageHistoryQuery struct {
	Before *time.Time
	Limit  int `validate:"omitempty,min=1,max=100"`
}

// UnreadCountResponse carries an unread counter.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// BulkUpdateResponse reports how many rows a bulk operation touched.
type BulkUpdateResponse struct {
	Updated int64 `json:"updated"`
}

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	RecipientID string                 `json:"recipient_id" validate:"required,max=64"`
	SenderID    string                 `json:"sender_id" validate:"omitempty,max=64"`
	CaseID      *uint                  `json:"case_id"`
	Message     string                 `json:"message" validate:"required,min=1,max=2000"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID          uint                   `json:"id"`
	RecipientID string                 `json:"recipient_id"`
	SenderID    string                 `json:"sender_id"`
	CaseID      *uint                  `json:"case_id"`
	Message     string                 `json:"message"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Read        bool                   `json:"read"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		metadata = map[string]interface{}(model.Metadata)
	}
	return NotificationResponse{
		ID:          model.ID,
		RecipientID: model.RecipientID,
		SenderID:    model.SenderID,
		CaseID:      model.CaseID,
		Message:     model.Message,
		Metadata:    metadata,
		Read:        model.Read,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// MessageStatusResponse reports a recipient's delivery status for a message.
type MessageStatusResponse struct {
	MessageID   uint      `json:"message_id"`
	RecipientID string    `json:"recipient_id"`
	ChatRoomID  uint      `json:"chat_room_id"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMessageStatusResponse converts a status model into a DTO.
func NewMessageStatusResponse(status models.MessageStatus) MessageStatusResponse {
	return MessageStatusResponse{
		MessageID:   status.MessageID,
		RecipientID: status.RecipientID,
		ChatRoomID:  status.ChatRoomID,
		Status:      status.Status,
		UpdatedAt:   status.UpdatedAt,
	}
}
