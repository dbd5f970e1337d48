// api/controller/authz_controller.go
package controller

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hoteltrack/api/audit"
	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/middleware"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/pdp/dao"
	pdp_model "github.com/hoteltrack/api/pdp/model"
	"github.com/hoteltrack/api/util"
)

// CacheInvalidator is satisfied by *engine.PermissionResolver.
type CacheInvalidator interface {
	InvalidateRole(ctx context.Context, role string) error
	InvalidateAll(ctx context.Context) error
}

// AuditAppender is the part of audit.Service that records admin actions.
type AuditAppender interface {
	Append(ctx context.Context, entry audit.NewEntry) (*audit.AuditEntry, error)
}

// AppendFailureNotifier is satisfied by *util.NotificationService.
type AppendFailureNotifier interface {
	NotifyAppendFailure(ctx context.Context, entityType, entityID string, cause error) error
}

type AuthzController struct {
	gate           middleware.PermissionChecker
	invalidator    CacheInvalidator
	grants         dao.GrantLister
	auditor        AuditAppender
	notifier       AppendFailureNotifier
	validationUtil *util.ValidationUtil
}

// NewAuthzController serves the authorization admin API. A nil auditor
// leaves cache invalidations unrecorded; a nil grants lister disables the
// grant listing route.
func NewAuthzController(
	gate middleware.PermissionChecker,
	invalidator CacheInvalidator,
	grants dao.GrantLister,
	auditor AuditAppender,
	notifier AppendFailureNotifier,
	validationUtil *util.ValidationUtil,
) *AuthzController {
	return &AuthzController{
		gate:           gate,
		invalidator:    invalidator,
		grants:         grants,
		auditor:        auditor,
		notifier:       notifier,
		validationUtil: validationUtil,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuthzController) RegisterRoutes(r *gin.RouterGroup) {
	authz := r.Group("/authz")
	{
		authz.POST("/check", ac.Check)
		authz.POST("/cache/invalidate",
			middleware.RequirePermission(ac.gate, model.ResourcePermissions, model.ActionManage, nil),
			ac.InvalidateCache)
		if ac.grants != nil {
			authz.GET("/grants",
				middleware.RequirePermission(ac.gate, model.ResourcePermissions, model.ActionRead, nil),
				ac.ListGrants)
		}
	}
}

// ListGrants returns the whole catalog, or one role's grants with ?role=.
func (ac *AuthzController) ListGrants(c *gin.Context) {
	grants, err := ac.grants.ListGrants(c.Request.Context())
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list grants", err)
		return
	}
	if role := c.Query("role"); role != "" {
		filtered := make([]model.Grant, 0, len(grants))
		for _, g := range grants {
			if g.Role == role {
				filtered = append(filtered, g)
			}
		}
		grants = filtered
	}
	c.JSON(http.StatusOK, gin.H{"grants": grants, "count": len(grants)})
}

// Check explains the decision the gate reaches for the calling actor. It
// always answers 200; the decision carries the outcome.
func (ac *AuthzController) Check(c *gin.Context) {
	var req pdp_model.AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid access request", err)
		return
	}
	if err := ac.validationUtil.ValidateAccessRequest(req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		return
	}
	req.Actor = util.GetActorFromContext(c)

	decision := ac.gate.Check(c.Request.Context(), req.Actor, req.Resource, req.Action, req.Target)
	c.JSON(http.StatusOK, decision)
}

type invalidateRequest struct {
	Role string `json:"role"`
}

// InvalidateCache drops one role, or every role when none is named.
func (ac *AuthzController) InvalidateCache(c *gin.Context) {
	var req invalidateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid invalidation request", err)
			return
		}
	}

	var err error
	if req.Role == "" {
		err = ac.invalidator.InvalidateAll(c.Request.Context())
	} else {
		err = ac.invalidator.InvalidateRole(c.Request.Context(), req.Role)
	}
	if err != nil {
		// the local cache is already cleared; only the broadcast failed
		logger.Warn("Permission cache invalidation broadcast failed", zap.String("role", req.Role), zap.Error(err))
		util.RespondWithError(c, http.StatusBadGateway, "Cache invalidation broadcast failed", err)
		return
	}

	scope := req.Role
	if scope == "" {
		scope = "all"
	}
	if err := ac.recordInvalidation(c, scope); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to record cache invalidation",
			fmt.Errorf("%w: %w", hterrors.ErrAuditAppendFailed, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"invalidated": scope})
}

// recordInvalidation appends the audit entry for an invalidation and
// escalates when it cannot be written.
func (ac *AuthzController) recordInvalidation(c *gin.Context, scope string) error {
	if ac.auditor == nil {
		return nil
	}
	entry := audit.NewEntry{
		Action:     "invalidate",
		EntityType: "permission_cache",
		EntityID:   scope,
		Details:    map[string]string{"scope": scope},
	}
	if actor := util.GetActorFromContext(c); actor != nil {
		entry.UserID = actor.ID
		entry.HotelID = actor.HotelID
	}
	_, err := ac.auditor.Append(c.Request.Context(), entry)
	if err == nil {
		return nil
	}
	logger.Error("Failed to record permission cache invalidation", zap.String("scope", scope), zap.Error(err))
	if ac.notifier != nil {
		if nerr := ac.notifier.NotifyAppendFailure(c.Request.Context(), entry.EntityType, entry.EntityID, err); nerr != nil {
			logger.Warn("Failed to escalate audit append failure", zap.Error(nerr))
		}
	}
	return err
}
