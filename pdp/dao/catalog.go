package dao

import (
	"context"
	"sort"

	"github.com/hoteltrack/api/model"
)

// Catalog is the source of truth for (role, resource, action, scope) grants.
type Catalog interface {
	GrantsForRole(ctx context.Context, role string) ([]model.Grant, error)
}

// GrantLister enumerates every grant in a catalog, ordered by role,
// resource, action and scope.
type GrantLister interface {
	ListGrants(ctx context.Context) ([]model.Grant, error)
}

// StaticCatalog serves a fixed grant list from memory.
type StaticCatalog struct {
	all    []model.Grant
	byRole map[string][]model.Grant
}

func NewStaticCatalog(grants []model.Grant) *StaticCatalog {
	all := make([]model.Grant, len(grants))
	copy(all, grants)
	sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })

	byRole := make(map[string][]model.Grant)
	for _, g := range all {
		byRole[g.Role] = append(byRole[g.Role], g)
	}
	return &StaticCatalog{all: all, byRole: byRole}
}

func (c *StaticCatalog) ListGrants(ctx context.Context) ([]model.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Grant, len(c.all))
	copy(out, c.all)
	return out, nil
}

func (c *StaticCatalog) GrantsForRole(ctx context.Context, role string) ([]model.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grants := c.byRole[role]
	out := make([]model.Grant, len(grants))
	copy(out, grants)
	return out, nil
}
