package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hoteltrack/api/model"
	pdp_model "github.com/hoteltrack/api/pdp/model"
	"github.com/hoteltrack/api/util"
)

// PermissionChecker is satisfied by *engine.AuthorizationGate.
type PermissionChecker interface {
	Check(ctx context.Context, actor *model.Actor, resource model.Resource, action model.Action, target model.Target) pdp_model.AccessDecision
}

// TargetFunc extracts the resource instance a request acts upon.
type TargetFunc func(c *gin.Context) model.Target

// HotelFromQuery scopes the request to the hotel_id query parameter. Without
// one the request is scoped to the actor's own hotel, and an actor bound to
// no hotel is asking for every hotel.
func HotelFromQuery(c *gin.Context) model.Target {
	if hotelID := c.Query("hotel_id"); hotelID != "" {
		return model.Target{HotelID: hotelID}
	}
	if actor := util.GetActorFromContext(c); actor != nil && actor.HotelID != "" {
		return model.Target{HotelID: actor.HotelID}
	}
	return model.PlatformTarget()
}

// PlatformWide scopes the request to every hotel. Use it for routes whose
// result cannot be narrowed to one tenant.
func PlatformWide(*gin.Context) model.Target {
	return model.PlatformTarget()
}

// RequirePermission answers 401 without an actor and 403 with the refused
// {resource, action} pair when the gate denies.
func RequirePermission(gate PermissionChecker, resource model.Resource, action model.Action, targetFn TargetFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := util.GetActorFromContext(c)
		var target model.Target
		if targetFn != nil {
			target = targetFn(c)
		}

		decision := gate.Check(c.Request.Context(), actor, resource, action, target)
		if decision.Allowed {
			c.Next()
			return
		}

		if decision.Path == pdp_model.PathUnauthenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":    "forbidden",
			"resource": decision.Resource,
			"action":   decision.Action,
		})
	}
}
