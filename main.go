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

	"github.com/dev-mohitbeniwal/warden/acl"
	"github.com/dev-mohitbeniwal/warden/audit"
	"github.com/dev-mohitbeniwal/warden/cache"
	"github.com/dev-mohitbeniwal/warden/config"
	"github.com/dev-mohitbeniwal/warden/controller"
	"github.com/dev-mohitbeniwal/warden/dao"
	"github.com/dev-mohitbeniwal/warden/db"
	logger "github.com/dev-mohitbeniwal/warden/logging"
	"github.com/dev-mohitbeniwal/warden/model"
	"github.com/dev-mohitbeniwal/warden/router"
	"github.com/dev-mohitbeniwal/warden/scheduler"
	"github.com/dev-mohitbeniwal/warden/service"
	"github.com/dev-mohitbeniwal/warden/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize utilities
	validationUtil := util.NewValidationUtil()
	notificationService := util.NewNotificationService(config.GetString("webhook.url"))
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)

	cacheConfig := config.GetConfig().Cache
	if err := validationUtil.ValidateCacheConfiguration(cacheConfig); err != nil {
		logger.Fatal("Invalid cache configuration", zap.Error(err))
	}

	// Initialize the authoritative ACL source
	aclDAO := dao.NewACLDAO(db.Neo4jDriver)

	// Build the ACL cache: consistency-checked when enabled, direct otherwise
	var aclCache *acl.Cache
	if cacheConfig.Enabled {
		tracked := make([]model.ObjectIdentityType, 0, len(cacheConfig.TrackedTypes))
		for _, name := range config.GetStringSlice("cache.trackedTypes") {
			tracked = append(tracked, model.ObjectIdentityType(name))
		}

		store := cache.NewConsistentStore(
			cache.NewStore(),
			db.NewConsistencyHashStore(),
			cache.ConsistencyConfig{
				CheckInterval:      time.Duration(cacheConfig.ConsistencyTimeoutSeconds) * time.Second,
				TrackedKeys:        []string{acl.CacheKey},
				AssumeFreshOnError: cacheConfig.AssumeFreshOnStoreError,
			},
		)
		aclCache = acl.New(aclDAO, store, tracked...)
		logger.Info("ACL cache enabled", zap.Any("trackedTypes", tracked))
	} else {
		aclCache = acl.NewDirect(aclDAO)
		logger.Info("ACL cache disabled, serving directly from source")
	}

	// Initialize services
	refreshInterval := time.Duration(cacheConfig.RefreshIntervalSeconds) * time.Second
	accessService := service.NewAccessService(
		aclCache,
		validationUtil,
		auditService,
		notificationService,
		eventBus,
		refreshInterval,
	)

	// Register and start the periodic refresh
	sched := scheduler.New()
	if cacheConfig.Enabled {
		sched.Register(accessService.RefreshJob())
	}
	sched.Start()
	defer sched.Stop()

	// Initialize controllers
	accessController := controller.NewAccessController(accessService)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(accessController, 100, time.Minute) // 100 requests per minute

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
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
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
