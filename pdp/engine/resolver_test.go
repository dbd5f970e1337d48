package engine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	hterrors "github.com/hoteltrack/api/errors"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/pdp/engine"
	mock_pkg "github.com/hoteltrack/api/test/mock"
)

// blockingCatalog holds every lookup until release is closed.
type blockingCatalog struct {
	calls   atomic.Int32
	release chan struct{}
	grants  []model.Grant
}

func (c *blockingCatalog) GrantsForRole(ctx context.Context, role string) ([]model.Grant, error) {
	c.calls.Add(1)
	select {
	case <-c.release:
		return c.grants, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type recordingInvalidator struct {
	mu    sync.Mutex
	roles []string
}

func (r *recordingInvalidator) Publish(_ context.Context, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, role)
	return nil
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	catalog := new(mock_pkg.MockCatalog)
	catalog.On("GrantsForRole", mock.Anything, model.RoleStaff).Return(staffGrants, nil).Once()

	clock := newFakeClock()
	resolver := engine.NewPermissionResolver(catalog, engine.NewPermissionCache(30*time.Second, engine.WithClock(clock.Now)))

	for i := 0; i < 3; i++ {
		grants, err := resolver.Resolve(context.Background(), model.RoleStaff)
		require.NoError(t, err)
		assert.Equal(t, staffGrants, grants)
	}
	catalog.AssertNumberOfCalls(t, "GrantsForRole", 1)

	catalog.On("GrantsForRole", mock.Anything, model.RoleStaff).Return([]model.Grant{}, nil).Once()
	clock.Advance(31 * time.Second)

	grants, err := resolver.Resolve(context.Background(), model.RoleStaff)
	require.NoError(t, err)
	assert.Empty(t, grants)
	catalog.AssertNumberOfCalls(t, "GrantsForRole", 2)
}

func TestResolver_CatalogFailureIsExplicit(t *testing.T) {
	catalog := new(mock_pkg.MockCatalog)
	catalog.On("GrantsForRole", mock.Anything, model.RoleStaff).Return(nil, errors.New("connection refused"))

	resolver := engine.NewPermissionResolver(catalog, engine.NewPermissionCache(time.Minute))

	grants, err := resolver.Resolve(context.Background(), model.RoleStaff)
	assert.ErrorIs(t, err, hterrors.ErrCatalogUnavailable)
	assert.Nil(t, grants)

	_, err = resolver.Resolve(context.Background(), model.RoleStaff)
	assert.ErrorIs(t, err, hterrors.ErrCatalogUnavailable)
	catalog.AssertNumberOfCalls(t, "GrantsForRole", 2)
	assert.Equal(t, 0, resolver.Cache().Len())
}

func TestResolver_EmptyGrantsAreNotAnError(t *testing.T) {
	catalog := new(mock_pkg.MockCatalog)
	catalog.On("GrantsForRole", mock.Anything, "GUEST").Return(nil, nil).Once()

	resolver := engine.NewPermissionResolver(catalog, nil)

	grants, err := resolver.Resolve(context.Background(), "GUEST")
	require.NoError(t, err)
	assert.NotNil(t, grants)
	assert.Empty(t, grants)

	_, err = resolver.Resolve(context.Background(), "GUEST")
	require.NoError(t, err)
	catalog.AssertNumberOfCalls(t, "GrantsForRole", 1)
}

func TestResolver_SlowCatalogTimesOut(t *testing.T) {
	catalog := &blockingCatalog{release: make(chan struct{})}
	defer close(catalog.release)

	resolver := engine.NewPermissionResolver(catalog, nil, engine.WithLookupTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := resolver.Resolve(context.Background(), model.RoleStaff)
	assert.ErrorIs(t, err, hterrors.ErrCatalogUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolver_CollapsesConcurrentMisses(t *testing.T) {
	catalog := &blockingCatalog{release: make(chan struct{}), grants: staffGrants}
	resolver := engine.NewPermissionResolver(catalog, nil, engine.WithLookupTimeout(5*time.Second))

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := resolver.Resolve(context.Background(), model.RoleStaff)
			results <- err
		}()
	}

	require.Eventually(t, func() bool { return catalog.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(catalog.release)
	wg.Wait()
	close(results)

	for err := range results {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), catalog.calls.Load())
}

func TestResolver_InvalidationBroadcasts(t *testing.T) {
	catalog := new(mock_pkg.MockCatalog)
	catalog.On("GrantsForRole", mock.Anything, model.RoleStaff).Return(staffGrants, nil)

	inv := &recordingInvalidator{}
	resolver := engine.NewPermissionResolver(catalog, nil, engine.WithInvalidator(inv))

	_, err := resolver.Resolve(context.Background(), model.RoleStaff)
	require.NoError(t, err)

	require.NoError(t, resolver.InvalidateRole(context.Background(), model.RoleStaff))
	_, ok := resolver.Cache().Get(model.RoleStaff)
	assert.False(t, ok)

	require.NoError(t, resolver.InvalidateAll(context.Background()))
	assert.Equal(t, []string{model.RoleStaff, engine.InvalidateAllRoles}, inv.roles)
}
