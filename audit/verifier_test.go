package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hterrors "github.com/hoteltrack/api/errors"
)

func TestVerifier_EmptyChain(t *testing.T) {
	repo := newTestRepo(t)

	report, err := NewVerifier(repo).Verify(context.Background(), Range{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 0, report.TotalRecords)

	out, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":true,"totalRecords":0,"archivedSkipped":0,"errors":[]}`, string(out))
}

func TestVerifier_DetectsTamperedSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	pub := &capturePublisher{}
	entries := appendNames(t, NewRecorder(repo), "A", "B", "C", "D", "E")

	err := repo.db.Exec("UPDATE audit_entries SET snapshot_after = ? WHERE id = ?",
		`{"name":"Z"}`, entries[2].ID).Error
	require.NoError(t, err)

	report, err := NewVerifier(repo, WithFindingPublisher(pub)).Verify(context.Background(), Range{})
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, 5, report.TotalRecords)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, entries[2].ID, report.Errors[0].ID)
	assert.Equal(t, KindTamperedData, report.Errors[0].Kind)
	assert.Equal(t, entries[2].CurrentHash, report.Errors[0].Actual)
	assert.NotEqual(t, entries[2].CurrentHash, report.Errors[0].Expected)

	for i, e := range entries {
		stored, err := repo.Get(context.Background(), e.ID)
		require.NoError(t, err)
		assert.Equal(t, i != 2, stored.Verified, "verified flag of entry %d", i)
		assert.Equal(t, e.CurrentHash, stored.CurrentHash)
	}

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventIntegrityViolation, events[0].Type)
	violation := events[0].Payload.(IntegrityViolation)
	assert.Equal(t, "range", violation.Mode)
	assert.Len(t, violation.Findings, 1)
}

func TestVerifier_DeletedRowBreaksChain(t *testing.T) {
	repo := newTestRepo(t)
	entries := appendNames(t, NewRecorder(repo), "A", "B", "C")

	require.NoError(t, repo.db.Exec("DELETE FROM audit_entries WHERE id = ?", entries[1].ID).Error)

	report, err := NewVerifier(repo).Verify(context.Background(), Range{})
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, 2, report.TotalRecords)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, ChainError{
		ID:       entries[2].ID,
		Kind:     KindBrokenChain,
		Expected: entries[0].CurrentHash,
		Actual:   entries[1].CurrentHash,
	}, report.Errors[0])
}

func TestVerifier_IdempotentReports(t *testing.T) {
	repo := newTestRepo(t)
	entries := appendNames(t, NewRecorder(repo), "A", "B", "C", "D")
	require.NoError(t, repo.db.Exec("UPDATE audit_entries SET snapshot_after = ? WHERE id = ?",
		`{"name":"tampered"}`, entries[1].ID).Error)

	verifier := NewVerifier(repo)
	first, err := verifier.Verify(context.Background(), Range{})
	require.NoError(t, err)
	second, err := verifier.Verify(context.Background(), Range{})
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestVerifier_SubRangeAnchorsOnPredecessor(t *testing.T) {
	repo := newTestRepo(t)
	clock := newStepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)
	entries := appendNames(t, NewRecorder(repo, WithRecorderClock(clock.Now)), "A", "B", "C", "D", "E")

	rng := Range{From: entries[2].CreatedAt, To: entries[4].CreatedAt}
	report, err := NewVerifier(repo).Verify(context.Background(), rng)
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.TotalRecords)
}

func TestVerifier_VerifyRecent(t *testing.T) {
	repo := newTestRepo(t)
	entries := appendNames(t, NewRecorder(repo), "A", "B", "C", "D", "E")
	verifier := NewVerifier(repo)

	report, err := verifier.VerifyRecent(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.TotalRecords)

	require.NoError(t, repo.db.Exec("UPDATE audit_entries SET entity_id = ? WHERE id = ?",
		"product-X", entries[4].ID).Error)

	report, err = verifier.VerifyRecent(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, entries[4].ID, report.Errors[0].ID)
	assert.Equal(t, KindTamperedData, report.Errors[0].Kind)

	_, err = verifier.VerifyRecent(context.Background(), 0)
	assert.ErrorIs(t, err, hterrors.ErrInvalidRange)
}

func TestVerifier_RejectsInvertedRange(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	_, err := NewVerifier(repo).Verify(context.Background(), Range{From: now, To: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, hterrors.ErrInvalidRange)
}
