// api/audit/repository.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	hterrors "github.com/hoteltrack/api/errors"
)

// Repository persists the chain in the relational store. A Repository
// handed to a WithChainLock callback is bound to that transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the audit tables and the chain-state row at genesis.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&AuditEntry{}, &ChainState{}); err != nil {
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	state := ChainState{ID: chainStateID, HeadHash: GenesisHash}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return nil
}

// WithChainLock runs fn in a transaction holding the chain-state row lock.
// Returning an error from fn rolls back everything fn wrote.
func (r *Repository) WithChainLock(ctx context.Context, fn func(tx *Repository, state *ChainState) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state ChainState
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&state, chainStateID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return hterrors.ErrChainStateMissing
		}
		if err != nil {
			return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
		}
		return fn(&Repository{db: tx}, &state)
	})
}

func (r *Repository) ChainState(ctx context.Context) (*ChainState, error) {
	var state ChainState
	err := r.db.WithContext(ctx).First(&state, chainStateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hterrors.ErrChainStateMissing
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return &state, nil
}

func (r *Repository) Insert(ctx context.Context, e *AuditEntry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return nil
}

func (r *Repository) SaveChainState(ctx context.Context, state *ChainState) error {
	if err := r.db.WithContext(ctx).Save(state).Error; err != nil {
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return nil
}

func applyRange(q *gorm.DB, rng Range) *gorm.DB {
	if !rng.From.IsZero() {
		q = q.Where("created_at >= ?", rng.From.UTC())
	}
	if !rng.To.IsZero() {
		q = q.Where("created_at < ?", rng.To.UTC())
	}
	return q
}

// LiveEntries returns non-archived entries in rng in chain order.
func (r *Repository) LiveEntries(ctx context.Context, rng Range) ([]AuditEntry, error) {
	var entries []AuditEntry
	q := applyRange(r.db.WithContext(ctx).Where("archived = ?", false), rng)
	if err := q.Order("created_at ASC, seq ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return entries, nil
}

// RecentLiveEntries returns the last limit non-archived entries in chain
// order.
func (r *Repository) RecentLiveEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := r.db.WithContext(ctx).
		Where("archived = ?", false).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Predecessor returns the entry stored immediately before seq, archived or
// not, or nil when seq starts the chain.
func (r *Repository) Predecessor(ctx context.Context, seq int64) (*AuditEntry, error) {
	var entries []AuditEntry
	err := r.db.WithContext(ctx).
		Where("seq < ?", seq).
		Order("seq DESC").
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *Repository) CountArchived(ctx context.Context, rng Range) (int64, error) {
	var count int64
	q := applyRange(r.db.WithContext(ctx).Model(&AuditEntry{}).Where("archived = ?", true), rng)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return count, nil
}

// MarkUnverified flips verified to false. It never sets it back.
func (r *Repository) MarkUnverified(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&AuditEntry{}).
		Where("id IN ? AND verified = ?", ids, true).
		Update("verified", false).Error
	if err != nil {
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return nil
}

// ArchiveBefore archives live entries created before horizon whose seq is
// below headSeq.
func (r *Repository) ArchiveBefore(ctx context.Context, horizon time.Time, headSeq int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&AuditEntry{}).
		Where("archived = ? AND created_at < ? AND seq < ?", false, horizon.UTC(), headSeq).
		Updates(map[string]interface{}{"archived": true, "archived_at": now.UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, res.Error)
	}
	return res.RowsAffected, nil
}

// StreamRange calls fn for every entry in rng, archived included, in chain
// order, without loading the range into memory.
func (r *Repository) StreamRange(ctx context.Context, rng Range, fn func(*AuditEntry) error) error {
	q := applyRange(r.db.WithContext(ctx).Model(&AuditEntry{}), rng)
	rows, err := q.Order("created_at ASC, seq ASC").Rows()
	if err != nil {
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e AuditEntry
		if err := r.db.ScanRows(rows, &e); err != nil {
			return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
		}
		if err := fn(&e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*AuditEntry, error) {
	var e AuditEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hterrors.ErrAuditEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return &e, nil
}

// List returns one page of entries matching f, newest first, and the total
// match count.
func (r *Repository) List(ctx context.Context, f Filter) ([]AuditEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&AuditEntry{})
	if !f.IncludeArchived {
		q = q.Where("archived = ?", false)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.HotelID != "" {
		q = q.Where("hotel_id = ?", f.HotelID)
	}
	q = applyRange(q, Range{From: f.From, To: f.To})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var entries []AuditEntry
	err := q.Order("seq DESC").Limit(limit).Offset(f.Offset).Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	return entries, total, nil
}
