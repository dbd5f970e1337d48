package dao

import "github.com/hoteltrack/api/model"

var defaultGrantLines = []string{
	"DEPARTMENT_MANAGER:products:manage:DEPARTMENT",
	"DEPARTMENT_MANAGER:batches:manage:DEPARTMENT",
	"DEPARTMENT_MANAGER:categories:read:HOTEL",
	"DEPARTMENT_MANAGER:departments:read:HOTEL",
	"DEPARTMENT_MANAGER:users:read:DEPARTMENT",
	"DEPARTMENT_MANAGER:reports:export:DEPARTMENT",
	"DEPARTMENT_MANAGER:notifications:read:OWN",
	"DEPARTMENT_MANAGER:settings:read:HOTEL",

	"STAFF:products:read:DEPARTMENT",
	"STAFF:batches:read:DEPARTMENT",
	"STAFF:batches:update:DEPARTMENT",
	"STAFF:categories:read:HOTEL",
	"STAFF:users:read:OWN",
	"STAFF:users:update:OWN",
	"STAFF:notifications:read:OWN",

	"AUDITOR:audit_logs:read:HOTEL",
	"AUDITOR:audit_logs:export:HOTEL",
	"AUDITOR:reports:read:HOTEL",
}

// DefaultGrants is the catalog seeded at deployment. SUPER_ADMIN and
// HOTEL_ADMIN need no rows; the gate admits them before the catalog.
func DefaultGrants() []model.Grant {
	grants := make([]model.Grant, 0, len(defaultGrantLines))
	for _, line := range defaultGrantLines {
		g, err := model.ParseGrant(line)
		if err != nil {
			panic(err)
		}
		grants = append(grants, g)
	}
	return grants
}
