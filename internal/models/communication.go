package models

import (
	"time"

	"gorm.io/datatypes"
)

// Message types accepted by the chat engine.
const (
	MessageTypeText  = "text"
	MessageTypeFile  = "file"
	MessageTypeImage = "image"
)

// Delivery statuses, in transition order.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// ChatRoom is the two-party conversation opened for an approved case.
type ChatRoom struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClientID  string    `gorm:"size:64;index;not null" json:"client_id"`
	LawyerID  string    `gorm:"size:64;index;not null" json:"lawyer_id"`
	CaseID    *uint     `gorm:"uniqueIndex" json:"case_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasParticipant reports whether the user is one of the room's two parties.
func (r ChatRoom) HasParticipant(userID string) bool {
	return userID != "" && (r.ClientID == userID || r.LawyerID == userID)
}

// Counterpart returns the participant who is not userID.
func (r ChatRoom) Counterpart(userID string) string {
	if r.ClientID == userID {
		return r.LawyerID
	}
	return r.ClientID
}

// Message is an immutable chat entry.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ChatRoomID uint      `gorm:"index;not null" json:"chat_room_id"`
	SenderID   string    `gorm:"size:64;index;not null" json:"sender_id"`
	Type       string    `gorm:"size:16;not null;default:text" json:"type"`
	Content    string    `gorm:"type:text" json:"content"`
	FileRef    *string   `gorm:"size:512" json:"file_ref,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// MessageStatus tracks delivery of one message to its recipient.
type MessageStatus struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MessageID   uint      `gorm:"not null;uniqueIndex:idx_message_recipient" json:"message_id"`
	RecipientID string    `gorm:"size:64;not null;uniqueIndex:idx_message_recipient;index:idx_recipient_status" json:"recipient_id"`
	ChatRoomID  uint      `gorm:"not null;index" json:"chat_room_id"`
	Status      string    `gorm:"size:16;not null;default:sent;index:idx_recipient_status" json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Notification is a message addressed to a single recipient.
type Notification struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	RecipientID string            `gorm:"size:64;index:idx_notification_recipient_read;not null" json:"recipient_id"`
	SenderID    string            `gorm:"size:64" json:"sender_id"`
	CaseID      *uint             `gorm:"index" json:"case_id"`
	Message     string            `gorm:"type:text;not null" json:"message"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	Read        bool              `gorm:"not null;default:false;index:idx_notification_recipient_read" json:"read"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
