package dto

// CaseAssignRequest assigns a lawyer to a case.
type CaseAssignRequest struct {
	LawyerID string `json:"lawyer_id" validate:"required,max=64"`
}

// CaseStatusRequest moves a case to a new status.
type CaseStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected in_progress closed"`
}

// CaseResponse is the serialized view of a case after a collaborator action.
type CaseResponse struct {
	ID         uint    `json:"id"`
	Title      string  `json:"title"`
	ClientID   string  `json:"client_id"`
	LawyerID   *string `json:"lawyer_id,omitempty"`
	Status     string  `json:"status"`
	ChatRoomID *uint   `json:"chat_room_id,omitempty"`
}
