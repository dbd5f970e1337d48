package router_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hoteltrack/api/audit"
	"github.com/hoteltrack/api/controller"
	"github.com/hoteltrack/api/middleware"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/pdp/dao"
	"github.com/hoteltrack/api/pdp/engine"
	"github.com/hoteltrack/api/router"
	mock_pkg "github.com/hoteltrack/api/test/mock"
	"github.com/hoteltrack/api/util"
)

var secret = []byte("router-secret")

func setup(t *testing.T, health func() error) (*gin.Engine, *mock_pkg.MockAuditService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	catalog := dao.NewStaticCatalog(dao.DefaultGrants())
	resolver := engine.NewPermissionResolver(catalog, engine.NewPermissionCache(time.Minute))
	gate := engine.NewAuthorizationGate(resolver)
	svc := new(mock_pkg.MockAuditService)
	controllers := controller.InitializeControllers(svc, gate, resolver, catalog, util.NewNotificationService(),
		util.NewValidationUtil(), time.Hour)
	return router.SetupRouter(controllers, router.Options{
		Gate:      gate,
		JWTSecret: secret,
		Issuer:    "hoteltrack",
		Health:    health,
	}), svc
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := setup(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hoteltrack_http_requests_total")
}

func TestHealthUnavailable(t *testing.T) {
	r, _ := setup(t, func() error { return errors.New("redis: connection refused") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	r, svc := setup(t, nil)
	svc.On("Verify", mock.Anything, audit.Range{}).
		Return(&audit.Report{Valid: true, Errors: []audit.ChainError{}}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/verify", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := middleware.IssueToken(secret, "hoteltrack",
		model.Actor{ID: "aud-1", Role: model.RoleAuditor, HotelID: "H1"}, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
