package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRateLimit(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := RateLimit(ctx, client, "actor-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d should be allowed", i+1)
	}

	allowed, err := RateLimit(ctx, client, "actor-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = RateLimit(ctx, client, "actor-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLockResource(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	locked, err := LockResource(ctx, client, "audit-archival", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = LockResource(ctx, client, "audit-archival", time.Minute)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, UnlockResource(ctx, client, "audit-archival"))

	locked, err = LockResource(ctx, client, "audit-archival", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}
