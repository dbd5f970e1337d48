package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/metrics"
	"github.com/hoteltrack/api/util"
)

// Publisher receives events after the transaction that produced them has
// committed. *util.EventBus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

// Recorder appends entries to the chain. Appends are serialized by the
// chain-state row lock, so any number of processes may share one store.
type Recorder struct {
	repo      *Repository
	validator *util.ValidationUtil
	publisher Publisher
	now       func() time.Time
	newID     func() string
}

type RecorderOption func(*Recorder)

func WithPublisher(p Publisher) RecorderOption {
	return func(r *Recorder) { r.publisher = p }
}

func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

func WithIDGenerator(newID func() string) RecorderOption {
	return func(r *Recorder) { r.newID = newID }
}

func NewRecorder(repo *Repository, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		repo:      repo,
		validator: util.NewValidationUtil(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append links in a new entry. Either the entry and the advanced chain head
// commit together or nothing is written. A non-nil error must abort the
// caller's mutation.
func (r *Recorder) Append(ctx context.Context, in NewEntry) (*AuditEntry, error) {
	if err := r.validator.ValidateStruct(in); err != nil {
		metrics.ObserveAppend("invalid")
		return nil, fmt.Errorf("%w: %w", hterrors.ErrInvalidAuditEntry, err)
	}

	entry, err := r.prepare(in)
	if err != nil {
		metrics.ObserveAppend("invalid")
		return nil, fmt.Errorf("%w: %w", hterrors.ErrInvalidAuditEntry, err)
	}

	start := time.Now()
	err = r.repo.WithChainLock(ctx, func(tx *Repository, state *ChainState) error {
		createdAt := r.now().UTC().Truncate(time.Microsecond)
		if state.HeadCreatedAt != nil {
			head := state.HeadCreatedAt.UTC()
			if !createdAt.After(head) {
				createdAt = head.Add(time.Microsecond)
			}
		}

		entry.Seq = state.Seq + 1
		entry.CreatedAt = createdAt
		entry.PreviousHash = state.HeadHash
		hash, err := ComputeHash(entry)
		if err != nil {
			return err
		}
		entry.CurrentHash = hash

		if err := tx.Insert(ctx, entry); err != nil {
			return err
		}

		state.HeadHash = hash
		state.HeadEntryID = &entry.ID
		state.HeadCreatedAt = &createdAt
		state.Seq = entry.Seq
		return tx.SaveChainState(ctx, state)
	})
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAppend("failed")
		logger.Error("Failed to append audit entry",
			zap.String("entityType", in.EntityType),
			zap.String("entityID", in.EntityID),
			zap.String("action", in.Action),
			zap.Error(err),
			zap.Duration("duration", duration))
		return nil, fmt.Errorf("%w: %w", hterrors.ErrAuditAppendFailed, err)
	}

	metrics.ObserveAppend("ok")
	logger.Debug("Audit entry appended",
		zap.String("id", entry.ID),
		zap.Int64("seq", entry.Seq),
		zap.String("entityType", entry.EntityType),
		zap.String("action", entry.Action),
		zap.Duration("duration", duration))

	if r.publisher != nil {
		published := *entry
		r.publisher.Publish(ctx, EventEntryAppended, &published)
	}
	return entry, nil
}

func (r *Recorder) prepare(in NewEntry) (*AuditEntry, error) {
	details, err := encodePayload(in.Details)
	if err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}
	before, err := encodePayload(in.SnapshotBefore)
	if err != nil {
		return nil, fmt.Errorf("snapshotBefore: %w", err)
	}
	after, err := encodePayload(in.SnapshotAfter)
	if err != nil {
		return nil, fmt.Errorf("snapshotAfter: %w", err)
	}

	return &AuditEntry{
		ID:             r.newID(),
		HotelID:        optional(in.HotelID),
		UserID:         optional(in.UserID),
		Action:         in.Action,
		EntityType:     in.EntityType,
		EntityID:       in.EntityID,
		Details:        details,
		SnapshotBefore: before,
		SnapshotAfter:  after,
		HashVersion:    CurrentHashVersion,
		Verified:       true,
	}, nil
}
