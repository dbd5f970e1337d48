// api/controller/authz_controller_test.go
package controller_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hoteltrack/api/audit"
	"github.com/hoteltrack/api/controller"
	hterrors "github.com/hoteltrack/api/errors"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/pdp/dao"
	pdp_model "github.com/hoteltrack/api/pdp/model"
	mock_pkg "github.com/hoteltrack/api/test/mock"
	"github.com/hoteltrack/api/util"
)

type fakeInvalidator struct {
	mu    sync.Mutex
	roles []string
	all   int
	err   error
}

func (f *fakeInvalidator) InvalidateRole(_ context.Context, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, role)
	return f.err
}

func (f *fakeInvalidator) InvalidateAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all++
	return f.err
}

type fakeAppendNotifier struct {
	mu       sync.Mutex
	entities []string
}

func (f *fakeAppendNotifier) NotifyAppendFailure(_ context.Context, entityType, entityID string, _ error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities = append(f.entities, entityType+"/"+entityID)
	return nil
}

func setupAuthzRouter(inv *fakeInvalidator, actor *model.Actor) *gin.Engine {
	return setupAuthzRouterWithAuditor(inv, nil, nil, actor)
}

func setupAuthzRouterWithAuditor(inv *fakeInvalidator, auditor controller.AuditAppender, notifier controller.AppendFailureNotifier, actor *model.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(actor))
	controller.NewAuthzController(newTestGate(), inv, dao.NewStaticCatalog(dao.DefaultGrants()), auditor, notifier, util.NewValidationUtil()).
		RegisterRoutes(r.Group("/"))
	return r
}

func TestAuthzController_Check(t *testing.T) {
	r := setupAuthzRouter(&fakeInvalidator{}, staff)

	t.Run("Allowed", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/authz/check",
			`{"resource":"batches","action":"read","target":{"hotel_id":"H1","department_id":"D1"}}`)

		require.Equal(t, http.StatusOK, w.Code)
		var decision pdp_model.AccessDecision
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.True(t, decision.Allowed)
		assert.Equal(t, pdp_model.PathGrant, decision.Path)
	})

	t.Run("DeniedOtherDepartment", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/authz/check",
			`{"resource":"batches","action":"read","target":{"hotel_id":"H1","department_id":"D2"}}`)

		require.Equal(t, http.StatusOK, w.Code)
		var decision pdp_model.AccessDecision
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.False(t, decision.Allowed)
		assert.Equal(t, `permission denied: {resource:"batches", action:"read"}`, decision.Reason)
	})

	t.Run("UnknownResource", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/authz/check", `{"resource":"spaceships","action":"read"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthzController_InvalidateCache(t *testing.T) {
	t.Run("StaffForbidden", func(t *testing.T) {
		inv := &fakeInvalidator{}

		w := serve(setupAuthzRouter(inv, staff), http.MethodPost, "/authz/cache/invalidate", `{"role":"STAFF"}`)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, inv.roles)
	})

	t.Run("OneRoleIsAudited", func(t *testing.T) {
		inv := &fakeInvalidator{}
		auditor := new(mock_pkg.MockAuditService)
		auditor.On("Append", mock.Anything, mock.MatchedBy(func(e audit.NewEntry) bool {
			return e.Action == "invalidate" && e.EntityType == "permission_cache" && e.EntityID == "STAFF" && e.UserID == owner.ID
		})).Return(&audit.AuditEntry{ID: "e1"}, nil)

		w := serve(setupAuthzRouterWithAuditor(inv, auditor, nil, owner), http.MethodPost, "/authz/cache/invalidate", `{"role":"STAFF"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"STAFF"}, inv.roles)
		auditor.AssertExpectations(t)
	})

	t.Run("AllRoles", func(t *testing.T) {
		inv := &fakeInvalidator{}

		w := serve(setupAuthzRouter(inv, hotelAdmin), http.MethodPost, "/authz/cache/invalidate", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, inv.all)
	})

	t.Run("UnrecordedInvalidationFails", func(t *testing.T) {
		inv := &fakeInvalidator{}
		auditor := new(mock_pkg.MockAuditService)
		auditor.On("Append", mock.Anything, mock.Anything).Return(nil, hterrors.ErrAuditAppendFailed)
		notifier := &fakeAppendNotifier{}

		w := serve(setupAuthzRouterWithAuditor(inv, auditor, notifier, owner), http.MethodPost, "/authz/cache/invalidate", `{"role":"STAFF"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "invalidated")
		assert.Equal(t, []string{"permission_cache/STAFF"}, notifier.entities)
		auditor.AssertExpectations(t)
	})

	t.Run("BroadcastFailure", func(t *testing.T) {
		inv := &fakeInvalidator{err: errors.New("redis: connection refused")}

		w := serve(setupAuthzRouter(inv, owner), http.MethodPost, "/authz/cache/invalidate", "")

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestAuthzController_ListGrants(t *testing.T) {
	t.Run("FilteredByRole", func(t *testing.T) {
		w := serve(setupAuthzRouter(&fakeInvalidator{}, owner), http.MethodGet, "/authz/grants?role=AUDITOR", "")

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Grants []model.Grant `json:"grants"`
			Count  int           `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Grants)
		assert.Equal(t, len(resp.Grants), resp.Count)
		for _, g := range resp.Grants {
			assert.Equal(t, model.RoleAuditor, g.Role)
		}
	})

	t.Run("StaffForbidden", func(t *testing.T) {
		w := serve(setupAuthzRouter(&fakeInvalidator{}, staff), http.MethodGet, "/authz/grants", "")

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"forbidden","resource":"permissions","action":"read"}`, w.Body.String())
	})
}
