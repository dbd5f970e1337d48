// api/model/access.go
package model

// Role names. SUPER_ADMIN is the platform owner.
const (
	RoleSuperAdmin        = "SUPER_ADMIN"
	RoleHotelAdmin        = "HOTEL_ADMIN"
	RoleDepartmentManager = "DEPARTMENT_MANAGER"
	RoleStaff             = "STAFF"
	RoleAuditor           = "AUDITOR"
)

// Actor is the authenticated principal behind a request. Empty strings mean
// the attribute is absent.
type Actor struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	HotelID      string `json:"hotel_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
}

// PlatformHotelID marks a target spanning every hotel. No actor belongs to
// it, so only ALL-scoped grants and the platform owner cover it.
const PlatformHotelID = "*"

// Target describes the resource instance being acted upon. An empty field is
// unscoped along that axis.
type Target struct {
	HotelID      string `json:"hotel_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// PlatformTarget is the target of operations over the whole multi-tenant
// data set, such as the audit chain.
func PlatformTarget() Target {
	return Target{HotelID: PlatformHotelID}
}

// IsPlatform reports whether t spans every hotel.
func (t Target) IsPlatform() bool {
	return t.HotelID == PlatformHotelID
}
