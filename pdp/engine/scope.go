package engine

import "github.com/hoteltrack/api/model"

// Covers decides whether a grant of the given scope reaches target for
// actor. Scopes nest (ALL > HOTEL > DEPARTMENT > OWN) but every axis is
// checked on its own rather than by rank.
func Covers(actor *model.Actor, scope model.Scope, target model.Target) bool {
	if actor == nil {
		return false
	}

	if scope == model.ScopeAll {
		return true
	}
	if target.IsPlatform() {
		return false
	}

	switch scope {

	case model.ScopeHotel:
		return target.HotelID == "" || target.HotelID == actor.HotelID

	case model.ScopeDepartment:
		if target.HotelID != "" && actor.HotelID != "" && target.HotelID != actor.HotelID {
			return false
		}
		// an actor without a department has hotel-wide standing
		return target.DepartmentID == "" ||
			actor.DepartmentID == "" ||
			target.DepartmentID == actor.DepartmentID

	case model.ScopeOwn:
		// no target user is never "own"
		return target.UserID != "" && target.UserID == actor.ID
	}

	return false
}
