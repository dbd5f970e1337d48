package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/metrics"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/pdp/dao"
)

const DefaultLookupTimeout = 2 * time.Second

// PermissionResolver returns a role's grants, serving from the cache and
// falling back to the catalog on a miss.
type PermissionResolver struct {
	catalog       dao.Catalog
	cache         *PermissionCache
	lookupTimeout time.Duration
	invalidator   Invalidator
	group         singleflight.Group
}

type ResolverOption func(*PermissionResolver)

func WithLookupTimeout(d time.Duration) ResolverOption {
	return func(r *PermissionResolver) {
		if d > 0 {
			r.lookupTimeout = d
		}
	}
}

// WithInvalidator broadcasts invalidations to other processes.
func WithInvalidator(inv Invalidator) ResolverOption {
	return func(r *PermissionResolver) { r.invalidator = inv }
}

func NewPermissionResolver(catalog dao.Catalog, cache *PermissionCache, opts ...ResolverOption) *PermissionResolver {
	if cache == nil {
		cache = NewPermissionCache(DefaultCacheTTL)
	}
	r := &PermissionResolver{
		catalog:       catalog,
		cache:         cache,
		lookupTimeout: DefaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the grants held by role. An empty slice means the role has
// no grants; a catalog failure or timeout returns ErrCatalogUnavailable.
func (r *PermissionResolver) Resolve(ctx context.Context, role string) ([]model.Grant, error) {
	if grants, ok := r.cache.Get(role); ok {
		metrics.ObserveCatalogLookup("cache_hit")
		return grants, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	ch := r.group.DoChan(role, func() (interface{}, error) {
		return r.load(role)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.Grant), nil
	case <-waitCtx.Done():
		metrics.ObserveCatalogLookup("timeout")
		logger.Error("Permission catalog lookup timed out",
			zap.String("role", role),
			zap.Duration("timeout", r.lookupTimeout),
			zap.Error(waitCtx.Err()))
		return nil, fmt.Errorf("%w: %w", hterrors.ErrCatalogUnavailable, waitCtx.Err())
	}
}

// load runs once per role for all concurrent callers. It is detached from
// any single caller's context and bounded by lookupTimeout instead.
func (r *PermissionResolver) load(role string) ([]model.Grant, error) {
	// a concurrent flight may have filled the cache already
	if grants, ok := r.cache.Get(role); ok {
		return grants, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.lookupTimeout)
	defer cancel()

	start := time.Now()
	grants, err := r.catalog.GrantsForRole(ctx, role)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveCatalogLookup("error")
		logger.Error("Permission catalog unavailable",
			zap.String("role", role),
			zap.Error(err),
			zap.Duration("duration", duration))
		return nil, fmt.Errorf("%w: %w", hterrors.ErrCatalogUnavailable, err)
	}
	if grants == nil {
		grants = []model.Grant{}
	}

	r.cache.Set(role, grants)
	metrics.ObserveCatalogLookup("loaded")
	logger.Debug("Loaded grants for role",
		zap.String("role", role),
		zap.Int("grant_count", len(grants)),
		zap.Duration("duration", duration))
	return grants, nil
}

// InvalidateRole drops one role from the cache here and, when an
// invalidator is configured, in every other process.
func (r *PermissionResolver) InvalidateRole(ctx context.Context, role string) error {
	r.cache.InvalidateRole(role)
	logger.Info("Permission cache invalidated", zap.String("role", role))
	if r.invalidator != nil {
		return r.invalidator.Publish(ctx, role)
	}
	return nil
}

func (r *PermissionResolver) InvalidateAll(ctx context.Context) error {
	r.cache.InvalidateAll()
	logger.Info("Permission cache cleared")
	if r.invalidator != nil {
		return r.invalidator.Publish(ctx, InvalidateAllRoles)
	}
	return nil
}

func (r *PermissionResolver) Cache() *PermissionCache {
	return r.cache
}
