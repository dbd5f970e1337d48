package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const retention = 7 * 365 * 24 * time.Hour

func TestArchival_BoundaryIsExplainedByVerify(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := newStepClock(now.Add(-10*365*24*time.Hour), time.Hour)
	rec := NewRecorder(repo, WithRecorderClock(clock.Now))

	old := appendNames(t, rec, "A", "B", "C", "D", "E")
	clock.Set(now.Add(-time.Hour))
	recent := appendNames(t, rec, "F", "G")

	archived, err := NewArchivalManager(repo, func() time.Time { return now }).ArchiveOlderThan(context.Background(), retention)
	require.NoError(t, err)
	assert.Equal(t, int64(len(old)), archived)

	for _, e := range old {
		stored, err := repo.Get(context.Background(), e.ID)
		require.NoError(t, err)
		assert.True(t, stored.Archived)
		require.NotNil(t, stored.ArchivedAt)
		assert.Equal(t, e.CurrentHash, stored.CurrentHash)
		assert.Equal(t, e.PreviousHash, stored.PreviousHash)
	}

	report, err := NewVerifier(repo).Verify(context.Background(), Range{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, len(recent), report.TotalRecords)
	assert.Equal(t, len(old), report.ArchivedSkipped)
}

func TestArchival_NeverArchivesHead(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := newStepClock(now.Add(-9*365*24*time.Hour), time.Hour)
	entries := appendNames(t, NewRecorder(repo, WithRecorderClock(clock.Now)), "A", "B", "C")

	manager := NewArchivalManager(repo, func() time.Time { return now })
	archived, err := manager.ArchiveOlderThan(context.Background(), retention)
	require.NoError(t, err)
	assert.Equal(t, int64(2), archived)

	head, err := repo.Get(context.Background(), entries[2].ID)
	require.NoError(t, err)
	assert.False(t, head.Archived)

	archived, err = manager.ArchiveOlderThan(context.Background(), retention)
	require.NoError(t, err)
	assert.Equal(t, int64(0), archived)

	report, err := NewVerifier(repo).Verify(context.Background(), Range{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 1, report.TotalRecords)
	assert.Equal(t, 2, report.ArchivedSkipped)
}

func TestArchival_AppendAfterArchivalStillLinks(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := newStepClock(now.Add(-8*365*24*time.Hour), time.Hour)
	rec := NewRecorder(repo, WithRecorderClock(clock.Now))
	appendNames(t, rec, "A", "B")

	_, err := NewArchivalManager(repo, func() time.Time { return now }).ArchiveOlderThan(context.Background(), retention)
	require.NoError(t, err)

	clock.Set(now)
	appendNames(t, rec, "C")

	report, err := NewVerifier(repo).Verify(context.Background(), Range{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.TotalRecords)
	assert.Equal(t, 1, report.ArchivedSkipped)
}

func TestArchival_RejectsNonPositiveRetention(t *testing.T) {
	repo := newTestRepo(t)
	_, err := NewArchivalManager(repo, nil).ArchiveOlderThan(context.Background(), 0)
	assert.Error(t, err)
}
