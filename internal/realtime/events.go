package realtime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outbound event names.
const (
	EventPresenceState         = "presence:state"
	EventPresenceMemberAdded   = "presence:member_added"
	EventPresenceMemberRemoved = "presence:member_removed"
	EventNotificationCreated   = "notification-created"
	EventNotificationCount     = "notification-count"
	EventNewMessage            = "new-message"
	EventTypingStarted         = "typing-started"
	EventTypingStopped         = "typing-stopped"
)

// ErrInvalidEvent marks an outbound event rejected at the emit boundary.
var ErrInvalidEvent = errors.New("invalid realtime event")

// Event is the closed set of payloads the gateway pushes to subscribers.
type Event interface {
	EventName() string
	Validate() error
	outbound()
}

// Envelope is the frame written to a connection.
type Envelope struct {
	Event string `json:"event"`
	Room  string `json:"room"`
	Data  Event  `json:"data"`
}

// PresenceState is the full membership snapshot of a presence room.
type PresenceState struct {
	Room    string   `json:"room"`
	Members []string `json:"members"`
}

func (PresenceState) EventName() string { return EventPresenceState }
func (PresenceState) outbound()         {}

func (e PresenceState) Validate() error {
	if strings.TrimSpace(e.Room) == "" {
		return fmt.Errorf("%w: presence state requires room", ErrInvalidEvent)
	}
	if e.Members == nil {
		return fmt.Errorf("%w: presence state requires members", ErrInvalidEvent)
	}
	return nil
}

// PresenceMemberAdded announces an identity entering a presence room.
type PresenceMemberAdded struct {
	Room string `json:"room"`
	ID   string `json:"id"`
}

func (PresenceMemberAdded) EventName() string { return EventPresenceMemberAdded }
func (PresenceMemberAdded) outbound()         {}

func (e PresenceMemberAdded) Validate() error {
	return requireFields("presence member added", e.Room, e.ID)
}

// PresenceMemberRemoved announces an identity leaving a presence room.
type PresenceMemberRemoved struct {
	Room string `json:"room"`
	ID   string `json:"id"`
}

func (PresenceMemberRemoved) EventName() string { return EventPresenceMemberRemoved }
func (PresenceMemberRemoved) outbound()         {}

func (e PresenceMemberRemoved) Validate() error {
	return requireFields("presence member removed", e.Room, e.ID)
}

// NotificationCreated carries a freshly persisted notification.
type NotificationCreated struct {
	ID          uint      `json:"id"`
	RecipientID string    `json:"recipient_id"`
	SenderID    string    `json:"sender_id"`
	CaseID      *uint     `json:"case_id"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	Read        bool      `json:"read"`
}

func (NotificationCreated) EventName() string { return EventNotificationCreated }
func (NotificationCreated) outbound()         {}

func (e NotificationCreated) Validate() error {
	if e.ID == 0 {
		return fmt.Errorf("%w: notification created requires id", ErrInvalidEvent)
	}
	return requireFields("notification created", e.RecipientID)
}

// NotificationCount carries a recipient's unread notification count.
type NotificationCount struct {
	Count int64 `json:"count"`
}

func (NotificationCount) EventName() string { return EventNotificationCount }
func (NotificationCount) outbound()         {}

func (e NotificationCount) Validate() error {
	if e.Count < 0 {
		return fmt.Errorf("%w: notification count must not be negative", ErrInvalidEvent)
	}
	return nil
}

// NewMessage tells chat room subscribers to refetch; it never carries content.
type NewMessage struct {
	ID         uint      `json:"id"`
	ChatRoomID uint      `json:"chat_room_id"`
	SenderID   string    `json:"sender_id"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

func (NewMessage) EventName() string { return EventNewMessage }
func (NewMessage) outbound()         {}

func (e NewMessage) Validate() error {
	if e.ID == 0 || e.ChatRoomID == 0 {
		return fmt.Errorf("%w: new message requires id and chat_room_id", ErrInvalidEvent)
	}
	return requireFields("new message", e.SenderID)
}

// TypingStarted signals that a participant began typing.
type TypingStarted struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (TypingStarted) EventName() string { return EventTypingStarted }
func (TypingStarted) outbound()         {}

func (e TypingStarted) Validate() error {
	return requireFields("typing started", e.UserID)
}

// TypingStopped signals that a participant stopped typing.
type TypingStopped struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (TypingStopped) EventName() string { return EventTypingStopped }
func (TypingStopped) outbound()         {}

func (e TypingStopped) Validate() error {
	return requireFields("typing stopped", e.UserID)
}

func requireFields(event string, values ...string) error {
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s has empty required field", ErrInvalidEvent, event)
		}
	}
	return nil
}
