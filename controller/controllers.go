// api/controller/controllers.go
package controller

import (
	"time"

	"github.com/hoteltrack/api/audit"
	"github.com/hoteltrack/api/middleware"
	"github.com/hoteltrack/api/pdp/dao"
	"github.com/hoteltrack/api/util"
)

type Controllers struct {
	Audit *AuditController
	Authz *AuthzController
}

func InitializeControllers(
	auditService audit.Service,
	gate middleware.PermissionChecker,
	invalidator CacheInvalidator,
	grants dao.GrantLister,
	notifier AppendFailureNotifier,
	validationUtil *util.ValidationUtil,
	retention time.Duration,
) *Controllers {
	return &Controllers{
		Audit: NewAuditController(auditService, retention),
		Authz: NewAuthzController(gate, invalidator, grants, auditService, notifier, validationUtil),
	}
}
