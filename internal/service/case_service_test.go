package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/casedesk-api/internal/auth"
	"github.com/noah-isme/casedesk-api/internal/models"
	"github.com/noah-isme/casedesk-api/internal/repository"
)

var (
	adminActor  = auth.Identity{ID: "1", Role: "admin", FullName: "Root Admin"}
	lawyerActor = auth.Identity{ID: lawyerID, Role: "lawyer", FullName: "Bo Lawyer"}
	clientActor = auth.Identity{ID: clientID, Role: "client", FullName: "Ada Client"}
)

func setupCaseService(t *testing.T) (*gorm.DB, CaseService, *recordingEmitter) {
	t.Helper()

	db := setupServiceDB(t)
	emitter := &recordingEmitter{}
	notifications := NewNotificationService(repository.NewNotificationRepository(db), emitter, nil, newValidator(), zerolog.Nop())
	service := NewCaseService(repository.NewCaseRepository(db), repository.NewChatRepository(db), nil, notifications, newValidator(), zerolog.Nop())

	require.NoError(t, db.Create(&models.Case{ID: 3, Title: "Lease dispute", ClientID: clientID, Status: models.CaseStatusPending}).Error)
	return db, service, emitter
}

func TestCaseServiceAssignNotifiesLawyerAndClient(t *testing.T) {
	db, service, emitter := setupCaseService(t)

	result, err := service.Assign(context.Background(), 3, lawyerID, adminActor)
	require.NoError(t, err)
	require.NotNil(t, result.LawyerID)
	require.Equal(t, lawyerID, *result.LawyerID)

	var notifications []models.Notification
	require.NoError(t, db.Order("id").Find(&notifications).Error)
	require.Len(t, notifications, 2)
	require.Equal(t, lawyerID, notifications[0].RecipientID)
	require.Equal(t, clientID, notifications[1].RecipientID)
	require.Equal(t, "1", notifications[0].SenderID)
	require.NotNil(t, notifications[0].CaseID)
	require.Equal(t, uint(3), *notifications[0].CaseID)

	rooms := map[string]bool{}
	for _, event := range emitter.all() {
		rooms[event.room] = true
	}
	require.True(t, rooms["notif:user:9"])
	require.True(t, rooms["notif:user:5"])

	_, err = service.Assign(context.Background(), 404, lawyerID, adminActor)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = service.Assign(context.Background(), 3, "", adminActor)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestCaseServiceApproveOpensSingleChatRoom(t *testing.T) {
	db, service, _ := setupCaseService(t)
	ctx := context.Background()

	_, err := service.Assign(ctx, 3, lawyerID, adminActor)
	require.NoError(t, err)

	first, err := service.UpdateStatus(ctx, 3, "approved", lawyerActor)
	require.NoError(t, err)
	require.Equal(t, models.CaseStatusApproved, first.Status)
	require.NotNil(t, first.ChatRoomID)

	second, err := service.UpdateStatus(ctx, 3, "approved", adminActor)
	require.NoError(t, err)
	require.Equal(t, *first.ChatRoomID, *second.ChatRoomID)

	var rooms []models.ChatRoom
	require.NoError(t, db.Find(&rooms).Error)
	require.Len(t, rooms, 1)
	require.Equal(t, clientID, rooms[0].ClientID)
	require.Equal(t, lawyerID, rooms[0].LawyerID)

	var clientNotes int64
	require.NoError(t, db.Model(&models.Notification{}).Where("recipient_id = ?", clientID).Count(&clientNotes).Error)
	require.Equal(t, int64(3), clientNotes)
}

func TestCaseServiceReassignAfterApprovalMovesChatRoom(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := setupServiceDB(t)
	require.NoError(t, db.Create(&models.Case{ID: 3, Title: "Lease dispute", ClientID: clientID, Status: models.CaseStatusPending}).Error)

	chatRepo := repository.NewChatRepository(db)
	chats := NewChatService(chatRepo, newValidator(), ChatServiceOptions{Redis: client, CacheTTL: time.Minute, Emitter: &recordingEmitter{}}, zerolog.Nop())
	service := NewCaseService(repository.NewCaseRepository(db), chatRepo, chats, nil, newValidator(), zerolog.Nop())
	ctx := context.Background()

	_, err = service.Assign(ctx, 3, lawyerID, adminActor)
	require.NoError(t, err)
	approved, err := service.UpdateStatus(ctx, 3, "approved", adminActor)
	require.NoError(t, err)
	room := strconv.FormatUint(uint64(*approved.ChatRoomID), 10)

	ok, err := chats.IsChatParticipant(ctx, room, lawyerID)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists("chatroom:"+room))

	reassigned, err := service.Assign(ctx, 3, "12", adminActor)
	require.NoError(t, err)
	require.NotNil(t, reassigned.ChatRoomID)
	require.Equal(t, *approved.ChatRoomID, *reassigned.ChatRoomID)

	ok, err = chats.IsChatParticipant(ctx, room, "12")
	require.NoError(t, err)
	require.True(t, ok, "new lawyer joins the existing room")

	ok, err = chats.IsChatParticipant(ctx, room, lawyerID)
	require.NoError(t, err)
	require.False(t, ok, "previous lawyer loses access")

	var rooms int64
	require.NoError(t, db.Model(&models.ChatRoom{}).Count(&rooms).Error)
	require.Equal(t, int64(1), rooms)
}

func TestCaseServiceUpdateStatusGuards(t *testing.T) {
	_, service, _ := setupCaseService(t)
	ctx := context.Background()

	_, err := service.UpdateStatus(ctx, 3, "approved", adminActor)
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = service.UpdateStatus(ctx, 3, "in_progress", lawyerActor)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = service.UpdateStatus(ctx, 3, "in_progress", clientActor)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = service.UpdateStatus(ctx, 3, "archived", adminActor)
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = service.UpdateStatus(ctx, 404, "closed", adminActor)
	require.ErrorIs(t, err, ErrNotFound)

	updated, err := service.UpdateStatus(ctx, 3, "rejected", adminActor)
	require.NoError(t, err)
	require.Equal(t, models.CaseStatusRejected, updated.Status)
	require.Nil(t, updated.ChatRoomID)
}
