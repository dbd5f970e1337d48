// Package jobs runs the periodic audit maintenance: archival past the
// retention horizon and verification of the recent live window.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hoteltrack/api/audit"
	"github.com/hoteltrack/api/db"
	logger "github.com/hoteltrack/api/logging"
)

const (
	JobArchival  = "audit-archival"
	JobIntegrity = "audit-integrity"

	defaultLockTTL = 10 * time.Minute
	historyLimit   = 50
)

type ExecutionStatus string

const (
	ExecStatusSuccess ExecutionStatus = "success"
	ExecStatusFailed  ExecutionStatus = "failed"
	ExecStatusSkipped ExecutionStatus = "skipped"
)

// ExecutionRecord records the result of a single job run.
type ExecutionRecord struct {
	Job       string          `json:"job"`
	Status    ExecutionStatus `json:"status"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
	Detail    string          `json:"detail,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// AuditMaintainer is the part of audit.Service the jobs drive.
type AuditMaintainer interface {
	ArchiveOlderThan(ctx context.Context, retention time.Duration) (int64, error)
	VerifyRecent(ctx context.Context, limit int) (*audit.Report, error)
}

// AdminNotifier is satisfied by *util.NotificationService.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, message string) error
}

type Config struct {
	ArchiveSchedule   string
	VerifySchedule    string
	Retention         time.Duration
	VerifyRecentLimit int
	// LockTTL bounds how long a crashed instance can block archival
	// elsewhere.
	LockTTL time.Duration
	// Notifier, when set, hears about every failed run.
	Notifier AdminNotifier
}

type Scheduler struct {
	cron    *cron.Cron
	audit   AuditMaintainer
	redis   *redis.Client
	cfg     Config
	mu      sync.RWMutex
	history map[string][]ExecutionRecord
}

// NewScheduler builds the job set. A nil redisClient runs archival without
// the cross-instance lock; the chain-state row lock still serializes it.
func NewScheduler(auditSvc AuditMaintainer, redisClient *redis.Client, cfg Config) *Scheduler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.VerifyRecentLimit <= 0 {
		cfg.VerifyRecentLimit = audit.DefaultVerifyRecentLimit
	}
	cl := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		audit:   auditSvc,
		redis:   redisClient,
		cfg:     cfg,
		history: make(map[string][]ExecutionRecord),
	}
}

// Start registers the jobs and starts the cron loop. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.ArchiveSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.ArchiveSchedule, func() { s.RunArchival(ctx) }); err != nil {
			return fmt.Errorf("invalid archive schedule %q: %w", s.cfg.ArchiveSchedule, err)
		}
	}
	if s.cfg.VerifySchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.VerifySchedule, func() { s.RunIntegrityCheck(ctx) }); err != nil {
			return fmt.Errorf("invalid verify schedule %q: %w", s.cfg.VerifySchedule, err)
		}
	}
	s.cron.Start()
	logger.Info("Audit jobs scheduled",
		zap.String("archiveSchedule", s.cfg.ArchiveSchedule),
		zap.String("verifySchedule", s.cfg.VerifySchedule),
		zap.Duration("retention", s.cfg.Retention))
	return nil
}

// Stop halts scheduling. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunArchival archives entries past the retention horizon.
func (s *Scheduler) RunArchival(ctx context.Context) ExecutionRecord {
	rec := ExecutionRecord{Job: JobArchival, StartedAt: time.Now().UTC()}

	if s.redis != nil {
		acquired, err := db.LockResource(ctx, s.redis, JobArchival, s.cfg.LockTTL)
		if err != nil {
			return s.finish(ctx, rec, fmt.Errorf("acquire lock: %w", err))
		}
		if !acquired {
			rec.Status = ExecStatusSkipped
			rec.Detail = "another instance holds the archival lock"
			return s.record(rec)
		}
		defer func() {
			if err := db.UnlockResource(context.WithoutCancel(ctx), s.redis, JobArchival); err != nil {
				logger.Warn("Failed to release archival lock", zap.Error(err))
			}
		}()
	}

	n, err := s.audit.ArchiveOlderThan(ctx, s.cfg.Retention)
	if err == nil {
		rec.Detail = fmt.Sprintf("archived %d entries", n)
	}
	return s.finish(ctx, rec, err)
}

// RunIntegrityCheck verifies the most recent live entries. Findings are
// escalated by the verifier itself; here they only mark the run.
func (s *Scheduler) RunIntegrityCheck(ctx context.Context) ExecutionRecord {
	rec := ExecutionRecord{Job: JobIntegrity, StartedAt: time.Now().UTC()}

	report, err := s.audit.VerifyRecent(ctx, s.cfg.VerifyRecentLimit)
	if err == nil {
		rec.Detail = fmt.Sprintf("checked %d entries, %d findings", report.TotalRecords, len(report.Errors))
		if !report.Valid {
			logger.Warn("Scheduled integrity check found chain errors",
				zap.Int("total", report.TotalRecords),
				zap.Int("findings", len(report.Errors)))
		}
	}
	return s.finish(ctx, rec, err)
}

func (s *Scheduler) finish(ctx context.Context, rec ExecutionRecord, err error) ExecutionRecord {
	rec.Duration = time.Since(rec.StartedAt)
	if err != nil {
		rec.Status = ExecStatusFailed
		rec.Error = err.Error()
		logger.Error("Audit job failed", zap.String("job", rec.Job), zap.Error(err))
		if s.cfg.Notifier != nil {
			msg := fmt.Sprintf("audit job %s failed: %v", rec.Job, err)
			if nerr := s.cfg.Notifier.NotifyAdmins(context.WithoutCancel(ctx), msg); nerr != nil {
				logger.Warn("Failed to notify admins", zap.String("job", rec.Job), zap.Error(nerr))
			}
		}
	} else {
		rec.Status = ExecStatusSuccess
		logger.Info("Audit job completed",
			zap.String("job", rec.Job),
			zap.String("detail", rec.Detail),
			zap.Duration("duration", rec.Duration))
	}
	return s.record(rec)
}

func (s *Scheduler) record(rec ExecutionRecord) ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[rec.Job], rec)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	s.history[rec.Job] = h
	return rec
}

// History returns the recorded runs of job, oldest first.
func (s *Scheduler) History(job string) []ExecutionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExecutionRecord, len(s.history[job]))
	copy(out, s.history[job])
	return out
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
