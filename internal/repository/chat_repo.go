package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/casedesk-api/internal/models"
)

// ChatRepository persists chat rooms, messages and their delivery statuses.
type ChatRepository interface {
	FindRoom(ctx context.Context, id uint) (models.ChatRoom, error)
	FindRoomByCase(ctx context.Context, caseID uint) (models.ChatRoom, error)
	EnsureRoomForCase(ctx context.Context, caseID uint, clientID, lawyerID string) (models.ChatRoom, error)
	CreateMessage(ctx context.Context, message *models.Message, recipientID string) error
	FindMessage(ctx context.Context, id uint) (models.Message, error)
	ListByRoom(ctx context.Context, roomID uint, before time.Time, limit int) ([]models.Message, error)
	FindStatus(ctx context.Context, messageID uint, recipientID string) (models.MessageStatus, error)
	AdvanceStatus(ctx context.Context, messageID uint, recipientID, status string, from ...string) (int64, error)
	MarkRoomRead(ctx context.Context, roomID uint, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string, roomID *uint) (int64, error)
	DeleteMessage(ctx context.Context, id uint) error
	ClearRoom(ctx context.Context, roomID uint) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) FindRoom(ctx context.Context, id uint) (models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return models.ChatRoom{}, err
	}
	return room, nil
}

func (r *chatRepository) FindRoomByCase(ctx context.Context, caseID uint) (models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).Where("case_id = ?", caseID).First(&room).Error; err != nil {
		return models.ChatRoom{}, err
	}
	return room, nil
}

// EnsureRoomForCase returns the case's room, creating it when absent and
// otherwise moving it to the case's current lawyer. The unique case_id index
// keeps concurrent approvals down to one room.
func (r *chatRepository) EnsureRoomForCase(ctx context.Context, caseID uint, clientID, lawyerID string) (models.ChatRoom, error) {
	room := models.ChatRoom{ClientID: clientID, LawyerID: lawyerID, CaseID: &caseID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "case_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lawyer_id", "updated_at"}),
		}).
		Create(&room).Error
	if err != nil {
		return models.ChatRoom{}, err
	}
	return r.FindRoomByCase(ctx, caseID)
}

// CreateMessage writes the message and the recipient's sent status in one transaction.
func (r *chatRepository) CreateMessage(ctx context.Context, message *models.Message, recipientID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		status := models.MessageStatus{
			MessageID:   message.ID,
			RecipientID: recipientID,
			ChatRoomID:  message.ChatRoomID,
			Status:      models.MessageStatusSent,
		}
		return tx.Create(&status).Error
	})
}

func (r *chatRepository) FindMessage(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *chatRepository) ListByRoom(ctx context.Context, roomID uint, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Where("chat_room_id = ?", roomID)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Oldest first for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *chatRepository) FindStatus(ctx context.Context, messageID uint, recipientID string) (models.MessageStatus, error) {
	var status models.MessageStatus
	err := r.db.WithContext(ctx).
		Where("message_id = ? AND recipient_id = ?", messageID, recipientID).
		First(&status).Error
	if err != nil {
		return models.MessageStatus{}, err
	}
	return status, nil
}

// AdvanceStatus moves a status row to status only when it currently holds one of from.
func (r *chatRepository) AdvanceStatus(ctx context.Context, messageID uint, recipientID, status string, from ...string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MessageStatus{}).
		Where("message_id = ? AND recipient_id = ? AND status IN ?", messageID, recipientID, from).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

func (r *chatRepository) MarkRoomRead(ctx context.Context, roomID uint, recipientID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MessageStatus{}).
		Where("chat_room_id = ? AND recipient_id = ? AND status <> ?", roomID, recipientID, models.MessageStatusRead).
		Updates(map[string]interface{}{"status": models.MessageStatusRead, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

func (r *chatRepository) CountUnread(ctx context.Context, recipientID string, roomID *uint) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.MessageStatus{}).
		Where("recipient_id = ? AND status <> ?", recipientID, models.MessageStatusRead)
	if roomID != nil {
		query = query.Where("chat_room_id = ?", *roomID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *chatRepository) DeleteMessage(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.MessageStatus{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Message{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *chatRepository) ClearRoom(ctx context.Context, roomID uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_room_id = ?", roomID).Delete(&models.MessageStatus{}).Error; err != nil {
			return err
		}
		result := tx.Where("chat_room_id = ?", roomID).Delete(&models.Message{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
