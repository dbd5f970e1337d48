// api/model/grant.go
package model

import (
	"fmt"
	"strings"
)

type Resource string

const (
	ResourceProducts      Resource = "products"
	ResourceBatches       Resource = "batches"
	ResourceCategories    Resource = "categories"
	ResourceDepartments   Resource = "departments"
	ResourceUsers         Resource = "users"
	ResourceHotels        Resource = "hotels"
	ResourceSettings      Resource = "settings"
	ResourceNotifications Resource = "notifications"
	ResourceReports       Resource = "reports"
	ResourceAuditLogs     Resource = "audit_logs"
	ResourcePermissions   Resource = "permissions"
)

var resources = map[Resource]struct{}{
	ResourceProducts: {}, ResourceBatches: {}, ResourceCategories: {}, ResourceDepartments: {},
	ResourceUsers: {}, ResourceHotels: {}, ResourceSettings: {}, ResourceNotifications: {},
	ResourceReports: {}, ResourceAuditLogs: {}, ResourcePermissions: {},
}

func (r Resource) Valid() bool {
	_, ok := resources[r]
	return ok
}

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
	// ActionManage implies every other action on the resource.
	ActionManage Action = "manage"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExport, ActionManage:
		return true
	}
	return false
}

type Scope string

const (
	ScopeOwn        Scope = "OWN"
	ScopeDepartment Scope = "DEPARTMENT"
	ScopeHotel      Scope = "HOTEL"
	ScopeAll        Scope = "ALL"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeOwn, ScopeDepartment, ScopeHotel, ScopeAll:
		return true
	}
	return false
}

// Grant is one (role, resource, action, scope) catalog row.
type Grant struct {
	Role     string   `json:"role"`
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
	Scope    Scope    `json:"scope"`
}

func (g Grant) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", g.Role, g.Resource, g.Action, g.Scope)
}

// Matches reports whether the grant applies to the requested resource and
// action. A "manage" grant covers every action.
func (g Grant) Matches(resource Resource, action Action) bool {
	return g.Resource == resource && (g.Action == action || g.Action == ActionManage)
}

// ParseGrant parses the "role:resource:action:scope" form used in seed files.
func ParseGrant(s string) (Grant, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return Grant{}, fmt.Errorf("invalid grant %q, expected role:resource:action:scope", s)
	}
	g := Grant{
		Role:     parts[0],
		Resource: Resource(parts[1]),
		Action:   Action(parts[2]),
		Scope:    Scope(strings.ToUpper(parts[3])),
	}
	if g.Role == "" || !g.Resource.Valid() || !g.Action.Valid() || !g.Scope.Valid() {
		return Grant{}, fmt.Errorf("invalid grant %q", s)
	}
	return g, nil
}
