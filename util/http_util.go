// api/util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/model"
)

// ActorContextKey is the gin context key holding the authenticated *model.Actor.
const ActorContextKey = "actor"

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

func SetActor(c *gin.Context, actor *model.Actor) {
	c.Set(ActorContextKey, actor)
}

// GetActorFromContext returns nil when the request is unauthenticated.
func GetActorFromContext(c *gin.Context) *model.Actor {
	v, exists := c.Get(ActorContextKey)
	if !exists {
		return nil
	}
	actor, _ := v.(*model.Actor)
	return actor
}
