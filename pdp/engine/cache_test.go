package engine_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/pdp/engine"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var staffGrants = []model.Grant{
	{Role: model.RoleStaff, Resource: model.ResourceBatches, Action: model.ActionRead, Scope: model.ScopeDepartment},
}

func TestPermissionCache_ExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	cache := engine.NewPermissionCache(30*time.Second, engine.WithClock(clock.Now))

	cache.Set(model.RoleStaff, staffGrants)

	clock.Advance(29 * time.Second)
	grants, ok := cache.Get(model.RoleStaff)
	assert.True(t, ok)
	assert.Equal(t, staffGrants, grants)

	clock.Advance(time.Second)
	_, ok = cache.Get(model.RoleStaff)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestPermissionCache_StoresCopy(t *testing.T) {
	cache := engine.NewPermissionCache(time.Minute)
	grants := append([]model.Grant(nil), staffGrants...)
	cache.Set(model.RoleStaff, grants)

	grants[0].Scope = model.ScopeAll

	cached, ok := cache.Get(model.RoleStaff)
	assert.True(t, ok)
	assert.Equal(t, model.ScopeDepartment, cached[0].Scope)
}

func TestPermissionCache_Invalidate(t *testing.T) {
	cache := engine.NewPermissionCache(time.Minute)
	cache.Set(model.RoleStaff, staffGrants)
	cache.Set(model.RoleAuditor, nil)

	cache.InvalidateRole(model.RoleStaff)
	_, ok := cache.Get(model.RoleStaff)
	assert.False(t, ok)
	_, ok = cache.Get(model.RoleAuditor)
	assert.True(t, ok)

	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Len())
}

func TestPermissionCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, engine.DefaultCacheTTL, engine.NewPermissionCache(0).TTL())
}

func TestPermissionCache_GetReturnsCopy(t *testing.T) {
	cache := engine.NewPermissionCache(time.Minute)
	cache.Set(model.RoleStaff, staffGrants)

	first, ok := cache.Get(model.RoleStaff)
	assert.True(t, ok)
	first[0].Scope = model.ScopeAll

	second, ok := cache.Get(model.RoleStaff)
	assert.True(t, ok)
	assert.Equal(t, model.ScopeDepartment, second[0].Scope)
	assert.Equal(t, model.ScopeDepartment, staffGrants[0].Scope)
}
