package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/model"
	"github.com/hoteltrack/api/util"
)

// ActorClaims carries the persisted user state the gate needs. The subject
// is the actor id.
type ActorClaims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	HotelID      string `json:"hotel_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
}

func (c *ActorClaims) Actor() *model.Actor {
	return &model.Actor{
		ID:           c.Subject,
		Role:         c.Role,
		HotelID:      c.HotelID,
		DepartmentID: c.DepartmentID,
	}
}

// IssueToken signs an HS256 token for actor.
func IssueToken(secret []byte, issuer string, actor model.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:         actor.Role,
		HotelID:      actor.HotelID,
		DepartmentID: actor.DepartmentID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies tokenString and returns its claims.
func ParseToken(secret []byte, issuer, tokenString string) (*ActorClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("token is missing subject or role")
	}
	return claims, nil
}

// Authenticate resolves the bearer token into an actor on the context.
// Requests without a valid token are rejected with 401.
func Authenticate(secret []byte, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			logger.Warn("No bearer token provided", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := ParseToken(secret, issuer, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Warn("Rejected bearer token", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		util.SetActor(c, claims.Actor())
		c.Next()
	}
}
