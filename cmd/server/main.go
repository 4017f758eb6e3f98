package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	analyticsapp "github.com/shelfwise/backend/internal/application/analytics"
	catalogapp "github.com/shelfwise/backend/internal/application/catalog"
	salesapp "github.com/shelfwise/backend/internal/application/sales"
	"github.com/shelfwise/backend/internal/domain/storefront"
	"github.com/shelfwise/backend/internal/infrastructure/cache"
	"github.com/shelfwise/backend/internal/infrastructure/config"
	"github.com/shelfwise/backend/internal/infrastructure/logger"
	"github.com/shelfwise/backend/internal/infrastructure/persistence"
	"github.com/shelfwise/backend/internal/infrastructure/scheduler"
	"github.com/shelfwise/backend/internal/infrastructure/shopify"
	"github.com/shelfwise/backend/internal/interfaces/http/handler"
	"github.com/shelfwise/backend/internal/interfaces/http/middleware"
	"github.com/shelfwise/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Shelfwise Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	variantRepo := persistence.NewGormVariantRepository(db.DB)
	correlationRepo := persistence.NewGormCorrelationRepository(db.DB)

	// Initialize the storefront adapter
	platform, err := shopify.NewAdapter(&shopify.Config{
		APIVersion:           cfg.Shop.APIVersion,
		TimeoutSeconds:       cfg.Shop.TimeoutSeconds,
		RateLimitBaseDelay:   cfg.Sync.RateLimitBaseDelay,
		RateLimitMaxAttempts: cfg.Sync.RateLimitMaxAttempts,
	}, log)
	if err != nil {
		log.Fatal("Failed to create storefront adapter", zap.Error(err))
	}

	credentials := storefront.Credentials{
		ShopDomain:  cfg.Shop.Domain,
		AccessToken: cfg.Shop.AccessToken,
	}

	// Initialize the correlation read cache (redis, or in-memory fallback)
	correlationCache := cache.NewCorrelationCache(cfg.Redis, log)
	defer func() {
		if closer, ok := correlationCache.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				log.Error("Error closing correlation cache", zap.Error(err))
			}
		}
	}()

	// Initialize application services
	correlationService := analyticsapp.NewCorrelationService(correlationRepo, correlationCache, cfg.Cache.TTL, log)
	loyaltyService := analyticsapp.NewLoyaltyService(orderRepo, log)

	orderSyncService := salesapp.NewOrderSyncService(
		platform, orderRepo, loyaltyService, correlationService,
		salesapp.OrderSyncConfig{
			Credentials:        credentials,
			PageSize:           cfg.Sync.PageSize,
			OverlapBuffer:      cfg.Sync.OverlapBuffer,
			FullResyncLookback: cfg.Sync.FullResyncLookback,
			InterPageDelay:     cfg.Sync.InterPageDelay,
		}, log)

	inventorySyncService := catalogapp.NewInventorySyncService(
		platform, orderRepo, variantRepo,
		catalogapp.InventorySyncConfig{
			Credentials: credentials,
			BatchSize:   cfg.Sync.InventoryBatchSize,
		}, log)

	// Start the periodic sync trigger (if enabled)
	if cfg.Scheduler.Enabled {
		trigger := scheduler.NewSyncTrigger(scheduler.SyncTriggerConfig{
			OrderInterval:     cfg.Scheduler.OrderInterval,
			InventoryInterval: cfg.Scheduler.InventoryInterval,
		}, orderSyncService, inventorySyncService, log)
		trigger.Start(context.Background())
		defer trigger.Stop()
	}

	// Initialize HTTP handlers
	syncHandler := handler.NewSyncHandler(orderSyncService, inventorySyncService)
	correlationHandler := handler.NewCorrelationHandler(correlationService)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/healthz", systemHandler.Healthz)

	router.NewRouter(engine).
		Register(syncHandler).
		Register(correlationHandler).
		Register(systemHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
