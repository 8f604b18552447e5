package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/casedesk-api/internal/models"
	"github.com/noah-isme/casedesk-api/internal/observability"
)

const defaultChatRoomCacheTTL = 10 * time.Minute

type cachedChatRoom struct {
	ID       uint   `json:"id"`
	ClientID string `json:"client_id"`
	LawyerID string `json:"lawyer_id"`
	CaseID   *uint  `json:"case_id,omitempty"`
}

// chatRoomCache keeps room participants in Redis so membership checks skip the database.
type chatRoomCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func newChatRoomCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *chatRoomCache {
	if ttl <= 0 {
		ttl = defaultChatRoomCacheTTL
	}
	return &chatRoomCache{redis: client, ttl: ttl, logger: logger}
}

func chatRoomCacheKey(id uint) string {
	return fmt.Sprintf("chatroom:%d", id)
}

func (c *chatRoomCache) get(ctx context.Context, id uint) (models.ChatRoom, bool) {
	if c == nil || c.redis == nil {
		return models.ChatRoom{}, false
	}

	raw, err := c.redis.Get(ctx, chatRoomCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.ChatRoomCacheLookups().WithLabelValues("miss").Inc()
		} else {
			observability.ChatRoomCacheLookups().WithLabelValues("error").Inc()
			c.logger.Warn().Err(err).Uint("chat_room_id", id).Msg("chat room cache read failed")
		}
		return models.ChatRoom{}, false
	}

	var cached cachedChatRoom
	if err := json.Unmarshal(raw, &cached); err != nil {
		observability.ChatRoomCacheLookups().WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Uint("chat_room_id", id).Msg("invalid chat room cache entry")
		return models.ChatRoom{}, false
	}

	observability.ChatRoomCacheLookups().WithLabelValues("hit").Inc()
	return models.ChatRoom{ID: cached.ID, ClientID: cached.ClientID, LawyerID: cached.LawyerID, CaseID: cached.CaseID}, true
}

func (c *chatRoomCache) set(ctx context.Context, room models.ChatRoom) {
	if c == nil || c.redis == nil {
		return
	}

	payload, err := json.Marshal(cachedChatRoom{ID: room.ID, ClientID: room.ClientID, LawyerID: room.LawyerID, CaseID: room.CaseID})
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, chatRoomCacheKey(room.ID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("chat_room_id", room.ID).Msg("chat room cache write failed")
	}
}

func (c *chatRoomCache) evict(ctx context.Context, id uint) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, chatRoomCacheKey(id)).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("chat_room_id", id).Msg("chat room cache eviction failed")
	}
}
