package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoteltrack/api/middleware"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/util"
)

var testSecret = []byte("test-secret")

func TestParseToken_RoundTrip(t *testing.T) {
	actor := model.Actor{ID: "u1", Role: model.RoleStaff, HotelID: "H1", DepartmentID: "D1"}
	token, err := middleware.IssueToken(testSecret, "hoteltrack", actor, time.Hour)
	require.NoError(t, err)

	claims, err := middleware.ParseToken(testSecret, "hoteltrack", token)
	require.NoError(t, err)
	assert.Equal(t, &actor, claims.Actor())
}

func TestParseToken_Rejects(t *testing.T) {
	actor := model.Actor{ID: "u1", Role: model.RoleStaff}

	expired, err := middleware.IssueToken(testSecret, "hoteltrack", actor, -time.Minute)
	require.NoError(t, err)
	_, err = middleware.ParseToken(testSecret, "hoteltrack", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := middleware.IssueToken(testSecret, "hoteltrack", actor, time.Hour)
	require.NoError(t, err)
	_, err = middleware.ParseToken([]byte("other-secret"), "hoteltrack", valid)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = middleware.ParseToken(testSecret, "someone-else", valid)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	noRole, err := middleware.IssueToken(testSecret, "hoteltrack", model.Actor{ID: "u1"}, time.Hour)
	require.NoError(t, err)
	_, err = middleware.ParseToken(testSecret, "hoteltrack", noRole)
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Authenticate(testSecret, "hoteltrack"))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, util.GetActorFromContext(c))
	})

	t.Run("MissingToken", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ValidToken", func(t *testing.T) {
		token, err := middleware.IssueToken(testSecret, "hoteltrack",
			model.Actor{ID: "u1", Role: model.RoleAuditor, HotelID: "H1"}, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"u1","role":"AUDITOR","hotel_id":"H1"}`, w.Body.String())
	})

	t.Run("GarbageToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
