package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/hoteltrack/api/logging"
)

const (
	DefaultInvalidationChannel = "permissions:invalidate"
	// InvalidateAllRoles is the message payload that clears every role.
	InvalidateAllRoles = "*"
)

// Invalidator fans a cache invalidation out to other processes.
type Invalidator interface {
	Publish(ctx context.Context, role string) error
}

// RedisInvalidator broadcasts invalidations over Redis pub/sub. Every
// process runs Listen against its own cache.
type RedisInvalidator struct {
	client  *redis.Client
	channel string
}

func NewRedisInvalidator(client *redis.Client, channel string) *RedisInvalidator {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	return &RedisInvalidator{client: client, channel: channel}
}

func (ri *RedisInvalidator) Publish(ctx context.Context, role string) error {
	if err := ri.client.Publish(ctx, ri.channel, role).Err(); err != nil {
		return fmt.Errorf("failed to publish permission invalidation: %w", err)
	}
	return nil
}

// Listen applies invalidations from the channel to cache until ctx is done.
// ready is closed once the subscription is confirmed.
func (ri *RedisInvalidator) Listen(ctx context.Context, cache *PermissionCache, ready chan<- struct{}) error {
	sub := ri.client.Subscribe(ctx, ri.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", ri.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	logger.Info("Listening for permission invalidations", zap.String("channel", ri.channel))

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == InvalidateAllRoles {
				cache.InvalidateAll()
			} else {
				cache.InvalidateRole(msg.Payload)
			}
			logger.Debug("Applied remote permission invalidation", zap.String("role", msg.Payload))
		case <-ctx.Done():
			return nil
		}
	}
}
