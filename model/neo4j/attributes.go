package ht_neo4j

// Attribute Keys
const (
	// AttrName represents the name of a role
	AttrName = "name"

	// AttrResource represents the resource a grant covers
	AttrResource = "resource"

	// AttrAction represents the action a grant permits
	AttrAction = "action"

	// AttrScope represents how far a grant reaches
	AttrScope = "scope"

	// AttrCreatedAt represents the creation timestamp of a node
	AttrCreatedAt = "createdAt"
)
