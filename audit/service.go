// api/audit/service.go
package audit

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrSearchDisabled is returned by SearchEntries when no search mirror is
// configured.
var ErrSearchDisabled = errors.New("audit search is not configured")

type Service interface {
	Append(ctx context.Context, entry NewEntry) (*AuditEntry, error)
	Verify(ctx context.Context, rng Range) (*Report, error)
	VerifyRecent(ctx context.Context, limit int) (*Report, error)
	ArchiveOlderThan(ctx context.Context, retention time.Duration) (int64, error)
	Export(ctx context.Context, w io.Writer, rng Range) (int, error)
	ListEntries(ctx context.Context, filter Filter) ([]AuditEntry, int64, error)
	GetEntry(ctx context.Context, id string) (*AuditEntry, error)
	SearchEntries(ctx context.Context, q SearchQuery) ([]SearchDocument, error)
}

type service struct {
	repo     *Repository
	recorder *Recorder
	verifier *Verifier
	archiver *ArchivalManager
	search   SearchIndex
}

func NewService(repo *Repository, recorder *Recorder, verifier *Verifier, archiver *ArchivalManager, search SearchIndex) Service {
	return &service{
		repo:     repo,
		recorder: recorder,
		verifier: verifier,
		archiver: archiver,
		search:   search,
	}
}

func (s *service) Append(ctx context.Context, entry NewEntry) (*AuditEntry, error) {
	return s.recorder.Append(ctx, entry)
}

func (s *service) Verify(ctx context.Context, rng Range) (*Report, error) {
	return s.verifier.Verify(ctx, rng)
}

func (s *service) VerifyRecent(ctx context.Context, limit int) (*Report, error) {
	return s.verifier.VerifyRecent(ctx, limit)
}

func (s *service) ArchiveOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return s.archiver.ArchiveOlderThan(ctx, retention)
}

func (s *service) Export(ctx context.Context, w io.Writer, rng Range) (int, error) {
	return ExportJSONL(ctx, s.repo, w, rng)
}

func (s *service) ListEntries(ctx context.Context, filter Filter) ([]AuditEntry, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) GetEntry(ctx context.Context, id string) (*AuditEntry, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) SearchEntries(ctx context.Context, q SearchQuery) ([]SearchDocument, error) {
	if s.search == nil {
		return nil, ErrSearchDisabled
	}
	return s.search.QueryEntries(ctx, q)
}
