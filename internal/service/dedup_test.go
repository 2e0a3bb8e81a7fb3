package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSetNX struct {
	mock.Mock
}

func (m *mockSetNX) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, value, expiration)
	cmd := redis.NewBoolCmd(ctx)
	if err := args.Error(1); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(args.Bool(0))
	}
	return cmd
}

func TestUpdateDeduplicator_FirstDelivery(t *testing.T) {
	ctx := context.Background()
	ttl := 10 * time.Minute

	t.Run("first delivery passes", func(t *testing.T) {
		client := new(mockSetNX)
		client.On("SetNX", ctx, "updates:17", 1, ttl).Return(true, nil).Once()

		assert.True(t, NewUpdateDeduplicator(client, ttl).FirstDelivery(ctx, 17))
		client.AssertExpectations(t)
	})

	t.Run("redelivery is dropped", func(t *testing.T) {
		client := new(mockSetNX)
		client.On("SetNX", ctx, "updates:17", 1, ttl).Return(false, nil).Once()

		assert.False(t, NewUpdateDeduplicator(client, ttl).FirstDelivery(ctx, 17))
	})

	t.Run("redis failure lets the update through", func(t *testing.T) {
		client := new(mockSetNX)
		client.On("SetNX", ctx, "updates:17", 1, ttl).Return(false, assert.AnError).Once()

		assert.True(t, NewUpdateDeduplicator(client, ttl).FirstDelivery(ctx, 17))
	})
}
