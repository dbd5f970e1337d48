package engine

import (
	"sync"
	"time"

	"github.com/hoteltrack/api/model"
	pdp_model "github.com/hoteltrack/api/pdp/model"
)

// DefaultCacheTTL is short so that revoked grants stop applying quickly.
const DefaultCacheTTL = 30 * time.Second

// PermissionCache holds each role's grants for a fixed TTL. Entries are keyed
// by role only; grants are not tenant specific.
type PermissionCache struct {
	mu      sync.RWMutex
	entries map[string]pdp_model.CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type CacheOption func(*PermissionCache)

// WithClock replaces time.Now, letting tests expire entries without sleeping.
func WithClock(now func() time.Time) CacheOption {
	return func(c *PermissionCache) { c.now = now }
}

func NewPermissionCache(ttl time.Duration, opts ...CacheOption) *PermissionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &PermissionCache{
		entries: make(map[string]pdp_model.CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached grants for role. ok is false on a miss or
// when the entry has expired.
func (c *PermissionCache) Get(role string) ([]model.Grant, bool) {
	c.mu.RLock()
	entry, ok := c.entries[role]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		c.mu.Lock()
		// re-check: a concurrent Set may have refreshed it
		if current, ok := c.entries[role]; ok && !c.now().Before(current.ExpiresAt) {
			delete(c.entries, role)
		}
		c.mu.Unlock()
		return nil, false
	}
	out := make([]model.Grant, len(entry.Grants))
	copy(out, entry.Grants)
	return out, true
}

func (c *PermissionCache) Set(role string, grants []model.Grant) {
	stored := make([]model.Grant, len(grants))
	copy(stored, grants)

	c.mu.Lock()
	c.entries[role] = pdp_model.CacheEntry{Grants: stored, ExpiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *PermissionCache) InvalidateRole(role string) {
	c.mu.Lock()
	delete(c.entries, role)
	c.mu.Unlock()
}

func (c *PermissionCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]pdp_model.CacheEntry)
	c.mu.Unlock()
}

func (c *PermissionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *PermissionCache) TTL() time.Duration {
	return c.ttl
}
