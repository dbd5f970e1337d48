package model

import "github.com/hoteltrack/api/model"

// Decision paths, also used as the metrics reason label.
const (
	PathUnauthenticated    = "unauthenticated"
	PathPlatformOwner      = "platform_owner"
	PathHotelAdmin         = "hotel_admin"
	PathGrant              = "grant"
	PathCatalogUnavailable = "catalog_unavailable"
	PathNoMatchingGrant    = "no_matching_grant"
)

type AccessDecision struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason"`
	Path     string `json:"path"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	// MatchedGrant is set when a catalog grant produced the allow.
	MatchedGrant *model.Grant `json:"matched_grant,omitempty"`
}
