package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoteltrack/api/db"
)

type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{t: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Type    string
	Payload interface{}
}

func (p *capturePublisher) Publish(_ context.Context, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Type: eventType, Payload: payload})
}

func (p *capturePublisher) Events() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capturedEvent(nil), p.events...)
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	gdb, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo := NewRepository(gdb)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func appendNames(t *testing.T, rec *Recorder, names ...string) []*AuditEntry {
	t.Helper()
	entries := make([]*AuditEntry, 0, len(names))
	for _, name := range names {
		e, err := rec.Append(context.Background(), NewEntry{
			HotelID:       "H1",
			UserID:        "user-1",
			Action:        "update",
			EntityType:    "product",
			EntityID:      "product-" + name,
			SnapshotAfter: map[string]interface{}{"name": name},
		})
		require.NoError(t, err)
		entries = append(entries, e)
	}
	return entries
}
