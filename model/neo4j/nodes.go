// Package ht_neo4j holds the graph schema of the permission catalog.
package ht_neo4j

// Node Labels
const (
	// LabelRole represents a role that actors are assigned
	LabelRole = "Role"

	// LabelGrant represents one (resource, action, scope) permission
	LabelGrant = "Grant"
)
