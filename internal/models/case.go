package models

import "time"

// Case statuses understood by the collaborator handlers.
const (
	CaseStatusPending    = "pending"
	CaseStatusApproved   = "approved"
	CaseStatusRejected   = "rejected"
	CaseStatusInProgress = "in_progress"
	CaseStatusClosed     = "closed"
)

// Case is the minimal view of a legal case the realtime core needs.
type Case struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	ClientID  string    `gorm:"size:64;index;not null" json:"client_id"`
	LawyerID  *string   `gorm:"size:64;index" json:"lawyer_id,omitempty"`
	Status    string    `gorm:"size:32;not null;default:pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists the models owned by this service, in migration order.
func All() []interface{} {
	return []interface{}{&Case{}, &ChatRoom{}, &Message{}, &MessageStatus{}, &Notification{}}
}
