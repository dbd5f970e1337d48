package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/model"

	ht_neo4j "github.com/hoteltrack/api/model/neo4j"
)

// Neo4jCatalog reads grants from the permission graph:
// (:Role {name})-[:HAS_GRANT]->(:Grant {resource, action, scope}).
type Neo4jCatalog struct {
	Driver   neo4j.DriverWithContext
	Database string
}

func NewNeo4jCatalog(driver neo4j.DriverWithContext, database string) *Neo4jCatalog {
	return &Neo4jCatalog{Driver: driver, Database: database}
}

func (c *Neo4jCatalog) queryOptions(routing neo4j.ExecuteQueryConfigurationOption) []neo4j.ExecuteQueryConfigurationOption {
	opts := []neo4j.ExecuteQueryConfigurationOption{routing}
	if c.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(c.Database))
	}
	return opts
}

func (c *Neo4jCatalog) GrantsForRole(ctx context.Context, role string) ([]model.Grant, error) {
	start := time.Now()
	query := `
	MATCH (r:` + ht_neo4j.LabelRole + ` {` + ht_neo4j.AttrName + `: $role})-[:` + ht_neo4j.RelHasGrant + `]->(g:` + ht_neo4j.LabelGrant + `)
	RETURN g.` + ht_neo4j.AttrResource + ` AS resource, g.` + ht_neo4j.AttrAction + ` AS action, g.` + ht_neo4j.AttrScope + ` AS scope
	ORDER BY resource, action, scope
	`
	params := map[string]interface{}{"role": role}

	result, err := neo4j.ExecuteQuery(ctx, c.Driver, query, params,
		neo4j.EagerResultTransformer, c.queryOptions(neo4j.ExecuteQueryWithReadersRouting())...)
	if err != nil {
		logger.Error("Failed to query permission graph",
			zap.String("role", role),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}

	grants := make([]model.Grant, 0, len(result.Records))
	for _, record := range result.Records {
		grant, err := mapRecordToGrant(role, record)
		if err != nil {
			logger.Error("Skipping malformed grant node", zap.String("role", role), zap.Error(err))
			continue
		}
		grants = append(grants, grant)
	}

	logger.Debug("Grants retrieved from permission graph",
		zap.String("role", role),
		zap.Int("count", len(grants)),
		zap.Duration("duration", time.Since(start)))
	return grants, nil
}

func (c *Neo4jCatalog) ListGrants(ctx context.Context) ([]model.Grant, error) {
	query := `
	MATCH (r:` + ht_neo4j.LabelRole + `)-[:` + ht_neo4j.RelHasGrant + `]->(g:` + ht_neo4j.LabelGrant + `)
	RETURN r.` + ht_neo4j.AttrName + ` AS role, g.` + ht_neo4j.AttrResource + ` AS resource, g.` + ht_neo4j.AttrAction + ` AS action, g.` + ht_neo4j.AttrScope + ` AS scope
	ORDER BY role, resource, action, scope
	`
	result, err := neo4j.ExecuteQuery(ctx, c.Driver, query, nil,
		neo4j.EagerResultTransformer, c.queryOptions(neo4j.ExecuteQueryWithReadersRouting())...)
	if err != nil {
		logger.Error("Failed to list permission graph", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}

	grants := make([]model.Grant, 0, len(result.Records))
	for _, record := range result.Records {
		raw, _ := record.Get("role")
		role, ok := raw.(string)
		if !ok {
			logger.Error("Skipping grant without role name")
			continue
		}
		grant, err := mapRecordToGrant(role, record)
		if err != nil {
			logger.Error("Skipping malformed grant node", zap.String("role", role), zap.Error(err))
			continue
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

func mapRecordToGrant(role string, record *neo4j.Record) (model.Grant, error) {
	values := make(map[string]string, 3)
	for _, key := range []string{"resource", "action", "scope"} {
		raw, ok := record.Get(key)
		if !ok {
			return model.Grant{}, fmt.Errorf("%w: missing %s", hterrors.ErrInvalidGrantData, key)
		}
		s, ok := raw.(string)
		if !ok {
			return model.Grant{}, fmt.Errorf("%w: %s is not a string", hterrors.ErrInvalidGrantData, key)
		}
		values[key] = s
	}

	grant := model.Grant{
		Role:     role,
		Resource: model.Resource(values["resource"]),
		Action:   model.Action(values["action"]),
		Scope:    model.Scope(values["scope"]),
	}
	if !grant.Resource.Valid() || !grant.Action.Valid() || !grant.Scope.Valid() {
		return model.Grant{}, fmt.Errorf("%w: %s", hterrors.ErrInvalidGrantData, grant)
	}
	return grant, nil
}

// Seed merges grants into the graph. Running it twice is a no-op.
func (c *Neo4jCatalog) Seed(ctx context.Context, grants []model.Grant) error {
	query := `
	UNWIND $grants AS grant
	MERGE (r:` + ht_neo4j.LabelRole + ` {` + ht_neo4j.AttrName + `: grant.role})
	MERGE (g:` + ht_neo4j.LabelGrant + ` {` + ht_neo4j.AttrResource + `: grant.resource, ` + ht_neo4j.AttrAction + `: grant.action, ` + ht_neo4j.AttrScope + `: grant.scope})
	ON CREATE SET g.` + ht_neo4j.AttrCreatedAt + ` = datetime()
	MERGE (r)-[:` + ht_neo4j.RelHasGrant + `]->(g)
	`
	rows := make([]map[string]interface{}, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, map[string]interface{}{
			"role":     g.Role,
			"resource": string(g.Resource),
			"action":   string(g.Action),
			"scope":    string(g.Scope),
		})
	}

	_, err := neo4j.ExecuteQuery(ctx, c.Driver, query, map[string]interface{}{"grants": rows},
		neo4j.EagerResultTransformer, c.queryOptions(neo4j.ExecuteQueryWithWritersRouting())...)
	if err != nil {
		logger.Error("Failed to seed permission graph", zap.Error(err))
		return fmt.Errorf("%w: %w", hterrors.ErrDatabaseOperation, err)
	}
	logger.Info("Permission graph seeded", zap.Int("count", len(rows)))
	return nil
}
