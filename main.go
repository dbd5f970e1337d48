package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hoteltrack/api/audit"
	"github.com/hoteltrack/api/config"
	"github.com/hoteltrack/api/controller"
	"github.com/hoteltrack/api/db"
	"github.com/hoteltrack/api/jobs"
	logger "github.com/hoteltrack/api/logging"
	"github.com/hoteltrack/api/pdp/dao"
	"github.com/hoteltrack/api/pdp/engine"
	"github.com/hoteltrack/api/router"
	"github.com/hoteltrack/api/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()

	// Initialize logger
	if err := logger.InitLogger(cfg.Log.Dir); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwtSecret must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the relational store
	if err := db.InitDB(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.CloseDB()

	// Initialize Redis
	if cfg.Redis.Addr != "" {
		if err := db.InitRedis(); err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer db.CloseRedis()
	}

	// Initialize Neo4j
	if cfg.Neo4j.URI != "" {
		if err := db.InitNeo4j(); err != nil {
			logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
		}
		defer db.CloseNeo4j()
	}

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	validationUtil := util.NewValidationUtil()
	notificationService := util.NewNotificationService()
	if db.RedisClient != nil {
		notificationService.AddSink(util.NewRedisAlertSink(db.RedisClient, ""))
	}

	// Permission engine
	catalog, err := buildCatalog(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize permission catalog", zap.Error(err))
	}
	cache := engine.NewPermissionCache(cfg.Permissions.CacheTTL)
	resolverOpts := []engine.ResolverOption{engine.WithLookupTimeout(cfg.Permissions.LookupTimeout)}
	if db.RedisClient != nil {
		invalidator := engine.NewRedisInvalidator(db.RedisClient, "")
		resolverOpts = append(resolverOpts, engine.WithInvalidator(invalidator))
		go func() {
			if err := invalidator.Listen(ctx, cache, nil); err != nil {
				logger.Error("Permission invalidation listener stopped", zap.Error(err))
			}
		}()
	}
	resolver := engine.NewPermissionResolver(catalog, cache, resolverOpts...)
	gate := engine.NewAuthorizationGate(resolver)

	// Audit chain
	auditRepository := audit.NewRepository(db.DB)
	if err := auditRepository.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate audit tables", zap.Error(err))
	}
	var searchIndex audit.SearchIndex
	if cfg.Elasticsearch.URL != "" {
		esIndex, err := audit.NewElasticsearchIndex(cfg.Elasticsearch.URL, cfg.Elasticsearch.Index)
		if err != nil {
			logger.Fatal("Failed to initialize Elasticsearch", zap.Error(err))
		}
		eventBus.Subscribe(audit.EventEntryAppended, esIndex.HandleAppended)
		searchIndex = esIndex
	}
	eventBus.Subscribe(audit.EventIntegrityViolation, audit.NewViolationHandler(notificationService))

	auditService := audit.NewService(
		auditRepository,
		audit.NewRecorder(auditRepository, audit.WithPublisher(eventBus)),
		audit.NewVerifier(auditRepository, audit.WithFindingPublisher(eventBus)),
		audit.NewArchivalManager(auditRepository, time.Now),
		searchIndex,
	)

	// Scheduled maintenance
	scheduler := jobs.NewScheduler(auditService, db.RedisClient, jobs.Config{
		ArchiveSchedule:   cfg.Audit.ArchiveSchedule,
		VerifySchedule:    cfg.Audit.VerifySchedule,
		Retention:         cfg.Audit.Retention,
		VerifyRecentLimit: cfg.Audit.VerifyRecentLimit,
		Notifier:          notificationService,
	})
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to schedule audit jobs", zap.Error(err))
	}

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	grantLister, _ := catalog.(dao.GrantLister)
	controllers := controller.InitializeControllers(
		auditService, gate, resolver, grantLister, notificationService, validationUtil, cfg.Audit.Retention)
	r := router.SetupRouter(controllers, router.Options{
		Gate:              gate,
		JWTSecret:         []byte(cfg.Auth.JWTSecret),
		Issuer:            cfg.Auth.Issuer,
		Redis:             db.RedisClient,
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitDuration: cfg.RateLimit.Window,
		Health: func() error {
			return db.CheckAll(context.Background(), 2*time.Second, db.StandardChecks())
		},
	})

	// Set up the server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("Audit jobs still running at shutdown")
	}
	cancel()
	eventBus.Wait()

	logger.Info("Server exiting")
}

// buildCatalog selects the grant store named by permissions.catalog and
// seeds it when permissions.seed is set.
func buildCatalog(ctx context.Context, cfg *config.Configuration) (dao.Catalog, error) {
	switch cfg.Permissions.Catalog {
	case "static":
		return dao.NewStaticCatalog(dao.DefaultGrants()), nil

	case "neo4j":
		if db.Neo4jDriver == nil {
			return nil, fmt.Errorf("permissions.catalog is neo4j but neo4j.uri is empty")
		}
		catalog := dao.NewNeo4jCatalog(db.Neo4jDriver, "")
		if cfg.Permissions.Seed {
			if err := catalog.Seed(ctx, dao.DefaultGrants()); err != nil {
				return nil, err
			}
		}
		return catalog, nil

	case "gorm", "":
		if err := db.Migrate(db.DB, &dao.GrantRecord{}); err != nil {
			return nil, err
		}
		catalog := dao.NewGormCatalog(db.DB)
		if cfg.Permissions.Seed {
			if err := catalog.Seed(ctx, dao.DefaultGrants()); err != nil {
				return nil, err
			}
		}
		return catalog, nil
	}
	return nil, fmt.Errorf("unknown permissions.catalog %q", cfg.Permissions.Catalog)
}
