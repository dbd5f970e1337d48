package ht_neo4j

// Relationship Types
const (
	// RelHasGrant represents the relationship between a role and a grant it holds
	RelHasGrant = "HAS_GRANT"
)
