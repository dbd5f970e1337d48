package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/metrics"
)

// ArchivalManager moves entries past the retention horizon out of the live
// verification window. Hash fields are never touched.
type ArchivalManager struct {
	repo *Repository
	now  func() time.Time
}

func NewArchivalManager(repo *Repository, now func() time.Time) *ArchivalManager {
	if now == nil {
		now = time.Now
	}
	return &ArchivalManager{repo: repo, now: now}
}

// ArchiveOlderThan archives live entries created more than retention ago
// and returns how many it archived. The chain head always stays live.
func (m *ArchivalManager) ArchiveOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", hterrors.ErrInvalidRange)
	}

	start := time.Now()
	now := m.now().UTC()
	horizon := now.Add(-retention)

	var archived int64
	err := m.repo.WithChainLock(ctx, func(tx *Repository, state *ChainState) error {
		if state.HeadCreatedAt != nil && state.HeadCreatedAt.Before(horizon) {
			logger.Warn("Chain head is past the retention horizon, keeping it live",
				zap.Error(hterrors.ErrArchivalRace),
				zap.Stringp("headID", state.HeadEntryID),
				zap.Time("horizon", horizon))
		}
		n, err := tx.ArchiveBefore(ctx, horizon, state.Seq, now)
		if err != nil {
			return err
		}
		archived = n
		return nil
	})
	if err != nil {
		logger.Error("Audit archival failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return 0, err
	}

	metrics.ObserveArchived(archived)
	logger.Info("Audit entries archived",
		zap.Int64("count", archived),
		zap.Time("horizon", horizon),
		zap.Duration("duration", time.Since(start)))
	return archived, nil
}
