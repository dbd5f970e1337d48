// api/controller/audit_controller.go
package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hoteltrack/api/audit"
	hterrors "github.com/hoteltrack/api/errors"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/middleware"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/util"
	helper_util "github.com/hoteltrack/api/util/helper"
)

type AuditController struct {
	auditService audit.Service
	retention    time.Duration
}

// NewAuditController serves the audit admin API. retention is used by the
// archive endpoint when the request does not name one.
func NewAuditController(auditService audit.Service, retention time.Duration) *AuditController {
	return &AuditController{
		auditService: auditService,
		retention:    retention,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup, gate middleware.PermissionChecker) {
	read := middleware.RequirePermission(gate, model.ResourceAuditLogs, model.ActionRead, middleware.HotelFromQuery)
	// the chain links every hotel's entries, so verifying or exporting it
	// needs platform-wide standing
	chainRead := middleware.RequirePermission(gate, model.ResourceAuditLogs, model.ActionRead, middleware.PlatformWide)
	export := middleware.RequirePermission(gate, model.ResourceAuditLogs, model.ActionExport, middleware.PlatformWide)
	manage := middleware.RequirePermission(gate, model.ResourceAuditLogs, model.ActionManage, middleware.PlatformWide)

	logs := r.Group("/audit")
	{
		logs.GET("/verify", chainRead, ac.Verify)
		logs.GET("/verify/recent", chainRead, ac.VerifyRecent)
		logs.GET("/export", export, ac.Export)
		logs.POST("/archive", manage, ac.Archive)
		logs.GET("/entries", read, ac.ListEntries)
		logs.GET("/entries/:id", read, ac.GetEntry)
		logs.GET("/search", read, ac.Search)
	}
}

func (ac *AuditController) respondWithAuditError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, hterrors.ErrInvalidRange):
		util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, hterrors.ErrAuditEntryNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Audit entry not found", err)
	case errors.Is(err, audit.ErrSearchDisabled):
		util.RespondWithError(c, http.StatusServiceUnavailable, "Audit search is not configured", err)
	case errors.Is(err, hterrors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, "Internal server error", fmt.Errorf("%w: %w", hterrors.ErrInternalServer, err))
	}
}

func rangeFromQuery(c *gin.Context) (audit.Range, bool) {
	from, to, err := helper_util.GetTimeRangeParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid time range", err)
		return audit.Range{}, false
	}
	rng := audit.Range{From: from, To: to}
	if err := rng.Validate(); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		return audit.Range{}, false
	}
	return rng, true
}

// hotelFilter pins actors bound to a hotel to their own hotel's entries.
func hotelFilter(c *gin.Context) string {
	actor := util.GetActorFromContext(c)
	if actor != nil && actor.Role != model.RoleSuperAdmin && actor.HotelID != "" {
		return actor.HotelID
	}
	return c.Query("hotel_id")
}

// Verify endpoint
func (ac *AuditController) Verify(c *gin.Context) {
	rng, ok := rangeFromQuery(c)
	if !ok {
		return
	}
	report, err := ac.auditService.Verify(c.Request.Context(), rng)
	if err != nil {
		ac.respondWithAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// VerifyRecent endpoint
func (ac *AuditController) VerifyRecent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(audit.DefaultVerifyRecentLimit)))
	if err != nil || limit <= 0 {
		util.RespondWithError(c, http.StatusBadRequest, "limit must be a positive integer", hterrors.ErrInvalidRequest)
		return
	}
	report, err := ac.auditService.VerifyRecent(c.Request.Context(), limit)
	if err != nil {
		ac.respondWithAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Export streams the range as JSON Lines. Once the first byte is written the
// status can no longer change, so late failures are only logged.
func (ac *AuditController) Export(c *gin.Context) {
	rng, ok := rangeFromQuery(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Content-Disposition", `attachment; filename="audit-export.jsonl"`)
	c.Status(http.StatusOK)

	n, err := ac.auditService.Export(c.Request.Context(), c.Writer, rng)
	if err != nil {
		logger.Error("Audit export aborted",
			zap.Int("written", n),
			zap.Error(err))
		_ = c.Error(err)
		return
	}
	logger.Info("Audit export completed", zap.Int("records", n))
}

type archiveRequest struct {
	Retention string `json:"retention"`
}

// Archive endpoint
func (ac *AuditController) Archive(c *gin.Context) {
	retention := ac.retention
	if c.Request.ContentLength > 0 {
		var req archiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid archive request", err)
			return
		}
		if req.Retention != "" {
			d, err := time.ParseDuration(req.Retention)
			if err != nil || d <= 0 {
				util.RespondWithError(c, http.StatusBadRequest, "retention must be a positive duration", hterrors.ErrInvalidRequest)
				return
			}
			retention = d
		}
	}

	n, err := ac.auditService.ArchiveOlderThan(c.Request.Context(), retention)
	if err != nil {
		ac.respondWithAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": n, "retention": retention.String()})
}

// ListEntries endpoint
func (ac *AuditController) ListEntries(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", hterrors.ErrInvalidPagination)
		return
	}
	rng, ok := rangeFromQuery(c)
	if !ok {
		return
	}

	filter := audit.Filter{
		EntityType:      c.Query("entityType"),
		EntityID:        c.Query("entityId"),
		UserID:          c.Query("userId"),
		HotelID:         hotelFilter(c),
		From:            rng.From,
		To:              rng.To,
		IncludeArchived: c.Query("includeArchived") == "true",
		Limit:           limit,
		Offset:          offset,
	}
	entries, total, err := ac.auditService.ListEntries(c.Request.Context(), filter)
	if err != nil {
		ac.respondWithAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetEntry endpoint
func (ac *AuditController) GetEntry(c *gin.Context) {
	entry, err := ac.auditService.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		ac.respondWithAuditError(c, err)
		return
	}
	if hotel := hotelFilter(c); hotel != "" && (entry.HotelID == nil || *entry.HotelID != hotel) {
		util.RespondWithError(c, http.StatusNotFound, "Audit entry not found", hterrors.ErrAuditEntryNotFound)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Search endpoint
func (ac *AuditController) Search(c *gin.Context) {
	rng, ok := rangeFromQuery(c)
	if !ok {
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "50"))
	if err != nil || size <= 0 || size > helper_util.MaxPageSize {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid size", hterrors.ErrInvalidPagination)
		return
	}

	docs, err := ac.auditService.SearchEntries(c.Request.Context(), audit.SearchQuery{
		From:       rng.From,
		To:         rng.To,
		UserID:     c.Query("userId"),
		HotelID:    hotelFilter(c),
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		Text:       c.Query("q"),
		Size:       size,
	})
	if err != nil {
		ac.respondWithAuditError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": docs, "count": len(docs)})
}
