package dao_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoteltrack/api/db"
	hterrors "github.com/hoteltrack/api/errors"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/pdp/dao"
)

func newGormCatalog(t *testing.T) *dao.GormCatalog {
	t.Helper()
	gdb, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, db.Migrate(gdb, &dao.GrantRecord{}))
	return dao.NewGormCatalog(gdb)
}

func TestDefaultGrants(t *testing.T) {
	grants := dao.DefaultGrants()
	require.NotEmpty(t, grants)
	assert.Contains(t, grants, model.Grant{
		Role:     model.RoleStaff,
		Resource: model.ResourceBatches,
		Action:   model.ActionRead,
		Scope:    model.ScopeDepartment,
	})
	for _, g := range grants {
		assert.NotEqual(t, model.RoleSuperAdmin, g.Role)
		assert.NotEqual(t, model.RoleHotelAdmin, g.Role)
	}
}

func TestStaticCatalog(t *testing.T) {
	catalog := dao.NewStaticCatalog(dao.DefaultGrants())

	grants, err := catalog.GrantsForRole(context.Background(), model.RoleAuditor)
	require.NoError(t, err)
	for _, g := range grants {
		assert.Equal(t, model.RoleAuditor, g.Role)
	}

	grants, err = catalog.GrantsForRole(context.Background(), "NOBODY")
	require.NoError(t, err)
	assert.Empty(t, grants)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = catalog.GrantsForRole(ctx, model.RoleStaff)
	assert.Error(t, err)
}

func TestStaticCatalog_ListGrants(t *testing.T) {
	var lister dao.GrantLister = dao.NewStaticCatalog(dao.DefaultGrants())

	all, err := lister.ListGrants(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, len(dao.DefaultGrants()))
	assert.Equal(t, model.RoleAuditor, all[0].Role)

	// callers get their own copy
	all[0].Role = "MUTATED"
	again, err := lister.ListGrants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RoleAuditor, again[0].Role)
}

func TestGormCatalog_SeedAndLookup(t *testing.T) {
	catalog := newGormCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.Seed(ctx, dao.DefaultGrants()))
	// seeding twice keeps one row per grant
	require.NoError(t, catalog.Seed(ctx, dao.DefaultGrants()))

	var lister dao.GrantLister = catalog
	all, err := lister.ListGrants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(dao.DefaultGrants()))

	staff, err := catalog.GrantsForRole(ctx, model.RoleStaff)
	require.NoError(t, err)
	assert.Contains(t, staff, model.Grant{
		Role:     model.RoleStaff,
		Resource: model.ResourceBatches,
		Action:   model.ActionRead,
		Scope:    model.ScopeDepartment,
	})
	for _, g := range staff {
		assert.Equal(t, model.RoleStaff, g.Role)
	}

	none, err := catalog.GrantsForRole(ctx, "NOBODY")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGormCatalog_RejectsInvalidGrant(t *testing.T) {
	catalog := newGormCatalog(t)

	err := catalog.Seed(context.Background(), []model.Grant{{Role: "X", Resource: "rooms", Action: model.ActionRead, Scope: model.ScopeAll}})
	assert.ErrorIs(t, err, hterrors.ErrInvalidGrantData)
}

func TestGormCatalog_UnavailableStore(t *testing.T) {
	catalog := newGormCatalog(t)
	sqlDB, err := catalog.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = catalog.GrantsForRole(context.Background(), model.RoleStaff)
	assert.ErrorIs(t, err, hterrors.ErrDatabaseOperation)
}
