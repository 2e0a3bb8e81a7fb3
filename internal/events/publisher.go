// Package events announces session lifecycle changes on redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/openclaw/sessionkeeper/internal/model"
	redisclient "github.com/openclaw/sessionkeeper/internal/redis"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// redisPublisher is satisfied by *redis.Client.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type Publisher struct {
	redis   redisPublisher
	channel string
}

func NewPublisher(client redisPublisher) *Publisher {
	return &Publisher{redis: client, channel: redisclient.SessionEventsChannel}
}

func (p *Publisher) PublishSessionStored(ctx context.Context, stored model.SessionStoredEvent) error {
	return p.publish(ctx, model.EventSessionStored, stored)
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	message, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	if err := p.redis.Publish(ctx, p.channel, message).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
