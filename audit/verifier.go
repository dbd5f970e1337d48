package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/metrics"
)

const DefaultVerifyRecentLimit = 500

// Verifier walks the live chain and reports broken links and tampered rows.
// Its only write is flipping verified to false on tampered rows.
//
// Archived entries are trusted by fiat: a scan is anchored on the stored
// hash of whatever entry precedes its first row, archived or not.
type Verifier struct {
	repo      *Repository
	publisher Publisher
	mu        sync.Mutex
}

type VerifierOption func(*Verifier)

func WithFindingPublisher(p Publisher) VerifierOption {
	return func(v *Verifier) { v.publisher = p }
}

func NewVerifier(repo *Repository, opts ...VerifierOption) *Verifier {
	v := &Verifier{repo: repo}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks every live entry in rng.
func (v *Verifier) Verify(ctx context.Context, rng Range) (*Report, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	start := time.Now()
	entries, err := v.repo.LiveEntries(ctx, rng)
	if err != nil {
		return nil, err
	}
	archived, err := v.repo.CountArchived(ctx, rng)
	if err != nil {
		return nil, err
	}

	report, err := v.check(ctx, "range", entries, int(archived))
	if err != nil {
		return nil, err
	}
	metrics.ObserveVerify("range", time.Since(start))
	logger.Info("Audit chain verified",
		zap.Bool("valid", report.Valid),
		zap.Int("totalRecords", report.TotalRecords),
		zap.Int("archivedSkipped", report.ArchivedSkipped),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

// VerifyRecent checks the last limit live entries.
func (v *Verifier) VerifyRecent(ctx context.Context, limit int) (*Report, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", hterrors.ErrInvalidRange)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	start := time.Now()
	entries, err := v.repo.RecentLiveEntries(ctx, limit)
	if err != nil {
		return nil, err
	}

	var archived int64
	if len(entries) > 0 {
		span := Range{From: entries[0].CreatedAt, To: entries[len(entries)-1].CreatedAt.Add(time.Microsecond)}
		if archived, err = v.repo.CountArchived(ctx, span); err != nil {
			return nil, err
		}
	}

	report, err := v.check(ctx, "recent", entries, int(archived))
	if err != nil {
		return nil, err
	}
	metrics.ObserveVerify("recent", time.Since(start))
	logger.Debug("Recent audit entries verified",
		zap.Bool("valid", report.Valid),
		zap.Int("totalRecords", report.TotalRecords),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

func (v *Verifier) check(ctx context.Context, mode string, entries []AuditEntry, archivedSkipped int) (*Report, error) {
	report := &Report{
		TotalRecords:    len(entries),
		ArchivedSkipped: archivedSkipped,
		Errors:          []ChainError{},
	}
	if len(entries) == 0 {
		report.Valid = true
		return report, nil
	}

	expected := GenesisHash
	prev, err := v.repo.Predecessor(ctx, entries[0].Seq)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		expected = prev.CurrentHash
	}

	findings, tampered := fold(expected, entries)
	report.Errors = append(report.Errors, findings...)
	report.Valid = len(report.Errors) == 0

	if len(tampered) > 0 {
		if err := v.repo.MarkUnverified(ctx, tampered); err != nil {
			return nil, err
		}
	}
	v.escalate(ctx, mode, report.Errors)
	return report, nil
}

// fold checks linkage and hashes in order, carrying the stored hash forward
// so one corrupted row yields one finding.
func fold(expected string, entries []AuditEntry) ([]ChainError, []string) {
	var findings []ChainError
	var tampered []string
	for i := range entries {
		e := &entries[i]
		if e.PreviousHash != expected {
			findings = append(findings, ChainError{
				ID:       e.ID,
				Kind:     KindBrokenChain,
				Expected: expected,
				Actual:   e.PreviousHash,
			})
		}

		recomputed, err := ComputeHash(e)
		if err != nil {
			logger.Error("Cannot recompute audit entry hash", zap.String("id", e.ID), zap.Error(err))
			recomputed = ""
		}
		if recomputed != e.CurrentHash {
			findings = append(findings, ChainError{
				ID:       e.ID,
				Kind:     KindTamperedData,
				Expected: recomputed,
				Actual:   e.CurrentHash,
			})
			tampered = append(tampered, e.ID)
		}

		expected = e.CurrentHash
	}
	return findings, tampered
}

func (v *Verifier) escalate(ctx context.Context, mode string, findings []ChainError) {
	if len(findings) == 0 {
		return
	}
	for _, f := range findings {
		metrics.ObserveChainFinding(f.Kind)
		logger.Error("Audit chain integrity finding",
			zap.String("mode", mode),
			zap.String("kind", f.Kind),
			zap.String("id", f.ID),
			zap.String("expected", f.Expected),
			zap.String("actual", f.Actual))
	}
	if v.publisher != nil {
		v.publisher.Publish(ctx, EventIntegrityViolation, IntegrityViolation{
			Mode:     mode,
			Findings: append([]ChainError(nil), findings...),
		})
	}
}
