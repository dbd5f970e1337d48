package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAll(t *testing.T) {
	gdb, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	client := newTestRedis(t)

	checks := map[string]Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
	assert.NoError(t, CheckAll(context.Background(), time.Second, checks))

	checks["neo4j"] = func(context.Context) error { return errors.New("connection refused") }
	err = CheckAll(context.Background(), time.Second, checks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neo4j: connection refused")
}

func TestCheckAll_Timeout(t *testing.T) {
	slow := map[string]Check{
		"slow": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	err := CheckAll(context.Background(), 20*time.Millisecond, slow)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
