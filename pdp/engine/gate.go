package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/metrics"
	"github.com/hoteltrack/api/model"
	pdp_model "github.com/hoteltrack/api/pdp/model"
)

// GrantResolver is the part of PermissionResolver the gate depends on.
type GrantResolver interface {
	Resolve(ctx context.Context, role string) ([]model.Grant, error)
}

// AuthorizationGate answers "may actor perform action on resource for
// target". It holds no mutable state of its own and is safe for concurrent
// use.
type AuthorizationGate struct {
	resolver GrantResolver
}

func NewAuthorizationGate(resolver GrantResolver) *AuthorizationGate {
	return &AuthorizationGate{resolver: resolver}
}

func (g *AuthorizationGate) Check(ctx context.Context, actor *model.Actor, resource model.Resource, action model.Action, target model.Target) pdp_model.AccessDecision {
	decision := g.decide(ctx, actor, resource, action, target)
	metrics.ObserveDecision(decision.Path, decision.Allowed)
	return decision
}

func (g *AuthorizationGate) decide(ctx context.Context, actor *model.Actor, resource model.Resource, action model.Action, target model.Target) pdp_model.AccessDecision {
	decision := pdp_model.AccessDecision{
		Resource: string(resource),
		Action:   string(action),
	}

	if actor == nil || actor.ID == "" || actor.Role == "" {
		decision.Path = pdp_model.PathUnauthenticated
		decision.Reason = hterrors.ErrAuthenticationRequired.Error()
		return decision
	}

	if actor.Role == model.RoleSuperAdmin {
		logger.Info("Platform owner bypass",
			zap.String("actorID", actor.ID),
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
			zap.String("targetHotelID", target.HotelID))
		decision.Allowed = true
		decision.Path = pdp_model.PathPlatformOwner
		decision.Reason = "platform owner"
		return decision
	}

	if actor.Role == model.RoleHotelAdmin && !target.IsPlatform() &&
		(target.HotelID == "" || target.HotelID == actor.HotelID) {
		decision.Allowed = true
		decision.Path = pdp_model.PathHotelAdmin
		decision.Reason = "hotel administrator"
		return decision
	}

	grants, err := g.resolver.Resolve(ctx, actor.Role)
	if err != nil {
		// fail closed for every role reaching this point
		if !errors.Is(err, hterrors.ErrCatalogUnavailable) {
			err = fmt.Errorf("%w: %w", hterrors.ErrCatalogUnavailable, err)
		}
		logger.Error("Denying access, permission catalog unavailable",
			zap.String("actorID", actor.ID),
			zap.String("role", actor.Role),
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
			zap.Error(err))
		decision.Path = pdp_model.PathCatalogUnavailable
		decision.Reason = hterrors.ErrCatalogUnavailable.Error()
		return decision
	}

	for i := range grants {
		grant := grants[i]
		if !grant.Matches(resource, action) {
			continue
		}
		if Covers(actor, grant.Scope, target) {
			decision.Allowed = true
			decision.Path = pdp_model.PathGrant
			decision.Reason = fmt.Sprintf("granted by %s", grant)
			decision.MatchedGrant = &grant
			return decision
		}
	}

	decision.Path = pdp_model.PathNoMatchingGrant
	decision.Reason = fmt.Sprintf("permission denied: {resource:%q, action:%q}", resource, action)
	logger.Info("Access denied",
		zap.String("actorID", actor.ID),
		zap.String("role", actor.Role),
		zap.String("resource", string(resource)),
		zap.String("action", string(action)))
	return decision
}

// Authorize is Check expressed as an error: nil on allow,
// ErrAuthenticationRequired, a *PermissionDeniedError, or a denial wrapping
// ErrCatalogUnavailable.
func (g *AuthorizationGate) Authorize(ctx context.Context, actor *model.Actor, resource model.Resource, action model.Action, target model.Target) error {
	decision := g.Check(ctx, actor, resource, action, target)
	if decision.Allowed {
		return nil
	}
	denied := &hterrors.PermissionDeniedError{Resource: decision.Resource, Action: decision.Action}
	switch decision.Path {
	case pdp_model.PathUnauthenticated:
		return hterrors.ErrAuthenticationRequired
	case pdp_model.PathCatalogUnavailable:
		return fmt.Errorf("%w: %w", denied, hterrors.ErrCatalogUnavailable)
	}
	return denied
}
