package db

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Check pings one backing store.
type Check func(ctx context.Context) error

// CheckAll runs checks concurrently and returns the first failure.
func CheckAll(ctx context.Context, timeout time.Duration, checks map[string]Check) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		name, check := name, check
		g.Go(func() error {
			if err := check(gctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// StandardChecks covers whichever stores this process has opened.
func StandardChecks() map[string]Check {
	checks := make(map[string]Check)
	if DB != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if RedisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return RedisClient.Ping(ctx).Err()
		}
	}
	if Neo4jDriver != nil {
		checks["neo4j"] = func(ctx context.Context) error {
			return Neo4jDriver.VerifyConnectivity(ctx)
		}
	}
	return checks
}
