package dao

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/model"
)

// GrantRecord is the permission_grants row.
type GrantRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Role      string    `gorm:"size:64;not null;uniqueIndex:idx_permission_grant"`
	Resource  string    `gorm:"size:64;not null;uniqueIndex:idx_permission_grant"`
	Action    string    `gorm:"size:32;not null;uniqueIndex:idx_permission_grant"`
	Scope     string    `gorm:"size:16;not null;uniqueIndex:idx_permission_grant"`
	CreatedAt time.Time `gorm:"not null"`
}

func (GrantRecord) TableName() string { return "permission_grants" }

func (r GrantRecord) toGrant() model.Grant {
	return model.Grant{
		Role:     r.Role,
		Resource: model.Resource(r.Resource),
		Action:   model.Action(r.Action),
		Scope:    model.Scope(r.Scope),
	}
}

// GormCatalog reads grants from the relational store.
type GormCatalog struct {
	DB *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{DB: db}
}

func (c *GormCatalog) GrantsForRole(ctx context.Context, role string) ([]model.Grant, error) {
	var rows []GrantRecord
	err := c.DB.WithContext(ctx).
		Where("role = ?", role).
		Order("resource, action, scope").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}

	grants := make([]model.Grant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, row.toGrant())
	}
	return grants, nil
}

func (c *GormCatalog) ListGrants(ctx context.Context) ([]model.Grant, error) {
	var rows []GrantRecord
	if err := c.DB.WithContext(ctx).Order("role, resource, action, scope").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	grants := make([]model.Grant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, row.toGrant())
	}
	return grants, nil
}

// Seed inserts grants that are not present yet. Existing rows are left
// untouched.
func (c *GormCatalog) Seed(ctx context.Context, grants []model.Grant) error {
	if len(grants) == 0 {
		return nil
	}
	rows := make([]GrantRecord, 0, len(grants))
	now := time.Now().UTC()
	for _, g := range grants {
		if g.Role == "" || !g.Resource.Valid() || !g.Action.Valid() || !g.Scope.Valid() {
			return fmt.Errorf("%w: %s", hterrors.ErrInvalidGrantData, g)
		}
		rows = append(rows, GrantRecord{
			Role:      g.Role,
			Resource:  string(g.Resource),
			Action:    string(g.Action),
			Scope:     string(g.Scope),
			CreatedAt: now,
		})
	}

	err := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		logger.Error("Failed to seed permission grants", zap.Error(err))
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	logger.Info("Permission grants seeded", zap.Int("count", len(rows)))
	return nil
}
