package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/openclaw/sessionkeeper/internal/redis"
)

// redisSetNX is satisfied by *redis.Client.
type redisSetNX interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// UpdateDeduplicator drops bot updates the chat front-end redelivers, for
// example after a slow webhook response.
type UpdateDeduplicator struct {
	client redisSetNX
	ttl    time.Duration
}

func NewUpdateDeduplicator(client redisSetNX, ttl time.Duration) *UpdateDeduplicator {
	return &UpdateDeduplicator{client: client, ttl: ttl}
}

// FirstDelivery reports whether updateID has not been seen within the TTL.
// When redis is unavailable the update is let through.
func (d *UpdateDeduplicator) FirstDelivery(ctx context.Context, updateID int64) bool {
	ok, err := d.client.SetNX(ctx, redisclient.UpdateKey(updateID), 1, d.ttl).Result()
	if err != nil {
		log.Warn().
			Err(err).
			Int64("updateId", updateID).
			Msg("update dedup check failed, processing update")
		return true
	}
	return ok
}
