// api/router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/hoteltrack/api/controller"
	"github.com/hoteltrack/api/metrics"
	"github.com/hoteltrack/api/middleware"
)

type Options struct {
	Gate              middleware.PermissionChecker
	JWTSecret         []byte
	Issuer            string
	Redis             *redis.Client
	RateLimitRequests int
	RateLimitDuration time.Duration
	// Health reports readiness; nil means always healthy.
	Health func() error
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Default.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(opts.JWTSecret, opts.Issuer))
	api.Use(middleware.RateLimiter(opts.Redis, opts.RateLimitRequests, opts.RateLimitDuration))

	controllers.Audit.RegisterRoutes(api, opts.Gate)
	controllers.Authz.RegisterRoutes(api)

	return router
}
