package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-scheduler/pkg/circuitbreaker"
	"github.com/jwalitptl/dental-scheduler/pkg/messaging"
)

func unreachable(t *testing.T) *RedisBroker {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	b := NewRedisBrokerFromClient(client, zerolog.Nop())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestNewRedisBroker_InvalidURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "not a url"}, zerolog.Nop())
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestPublish_MarshalError(t *testing.T) {
	b := unreachable(t)

	err := b.Publish(context.Background(), "notifications", messaging.Message{Payload: make(chan int)})
	assert.ErrorContains(t, err, "failed to marshal message")
}

func TestPublish_OpensBreakerWhenUnreachable(t *testing.T) {
	b := unreachable(t)
	ctx := context.Background()
	msg := messaging.Message{ID: "1", Type: "notification.created"}

	for i := 0; i < 10; i++ {
		err := b.Publish(ctx, "notifications", msg)
		require.Error(t, err)
		require.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}

	assert.ErrorIs(t, b.Publish(ctx, "notifications", msg), circuitbreaker.ErrOpen)
}
