package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	analyticsapp "github.com/erp/analytics/internal/application/analytics"
	recommendationapp "github.com/erp/analytics/internal/application/recommendation"
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/erp/analytics/internal/infrastructure/cache"
	"github.com/erp/analytics/internal/infrastructure/config"
	"github.com/erp/analytics/internal/infrastructure/logger"
	"github.com/erp/analytics/internal/infrastructure/persistence"
	"github.com/erp/analytics/internal/infrastructure/scheduler"
	"github.com/erp/analytics/internal/infrastructure/telemetry"
	"github.com/erp/analytics/internal/interfaces/http/handler"
	"github.com/erp/analytics/internal/interfaces/http/middleware"
	"github.com/erp/analytics/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting customer analytics service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
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

	// Prometheus registry and metrics
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	// Two-tier cache: in-process LRU in front of a durable tier
	storeFactory := cache.NewStoreFactory(cfg.Cache, cfg.Redis, db.DB,
		cache.WithLogger(log), cache.WithMetrics(metrics))
	store, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing cache store", zap.Error(err))
		}
	}()

	// Initialize repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	analyticsRepo := persistence.NewGormAnalyticsRepository(db.DB)
	recommendationRepo := persistence.NewGormRecommendationRepository(db.DB)

	// Initialize application services
	rfmService := analyticsapp.NewRFMService(customerRepo, transactionRepo, analyticsRepo, store, cfg.Analytics, log, metrics)
	clvService := analyticsapp.NewCLVService(customerRepo, transactionRepo, analyticsRepo, store, cfg.Analytics, log, metrics)
	churnService := analyticsapp.NewChurnService(customerRepo, transactionRepo, analyticsRepo, store, cfg.Analytics, log, metrics)
	recommendationService := recommendationapp.NewService(
		customerRepo, productRepo, transactionRepo, analyticsRepo, recommendationRepo,
		store, cfg.Analytics, log, metrics,
	)

	// Batch scheduler: each scorer recomputes on its own interval
	jobs := []scheduler.Job{
		{
			Name:     "rfm_batch",
			Interval: time.Duration(cfg.Scheduler.RFMIntervalHours) * time.Hour,
			Run: func(ctx context.Context) (*shared.BatchSummary, error) {
				resp, err := rfmService.CalculateAllCustomersRFM(ctx)
				if err != nil {
					return nil, err
				}
				return resp.Summary, nil
			},
		},
		{
			Name:     "clv_batch",
			Interval: time.Duration(cfg.Scheduler.CLVIntervalHours) * time.Hour,
			Run: func(ctx context.Context) (*shared.BatchSummary, error) {
				resp, err := clvService.CalculateAllCustomersCLV(ctx)
				if err != nil {
					return nil, err
				}
				return resp.Summary, nil
			},
		},
		{
			Name:     "churn_batch",
			Interval: time.Duration(cfg.Scheduler.ChurnIntervalHours) * time.Hour,
			Run: func(ctx context.Context) (*shared.BatchSummary, error) {
				resp, err := churnService.CalculateAllCustomersChurn(ctx)
				if err != nil {
					return nil, err
				}
				return resp.Summary, nil
			},
		},
		{
			Name:     "recommendation_batch",
			Interval: time.Duration(cfg.Scheduler.RecommendationIntervalHours) * time.Hour,
			Run: func(ctx context.Context) (*shared.BatchSummary, error) {
				resp, err := recommendationService.GenerateAllRecommendations(ctx)
				if err != nil {
					return nil, err
				}
				return resp.Summary, nil
			},
		},
	}
	batchScheduler := scheduler.NewBatchScheduler(jobs,
		scheduler.WithLogger(log),
		scheduler.WithJobRunStore(scheduler.NewJobRunStore(db.DB)),
	)
	if cfg.Scheduler.Enabled {
		if err := batchScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start batch scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := batchScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping batch scheduler", zap.Error(err))
			}
		}()
		log.Info("Batch scheduler started",
			zap.Int("rfm_interval_hours", cfg.Scheduler.RFMIntervalHours),
			zap.Int("clv_interval_hours", cfg.Scheduler.CLVIntervalHours),
			zap.Int("churn_interval_hours", cfg.Scheduler.ChurnIntervalHours),
			zap.Int("recommendation_interval_hours", cfg.Scheduler.RecommendationIntervalHours),
		)
	}

	// Initialize HTTP handlers
	analyticsHandler := handler.NewAnalyticsHandler(rfmService, clvService, churnService)
	recommendationHandler := handler.NewRecommendationHandler(recommendationService)
	adminHandler := handler.NewAdminHandler(
		rfmService, clvService, churnService, recommendationService,
		batchScheduler, store, log,
	)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(metrics.GinMiddleware())

	// Operational endpoints outside API versioning
	engine.GET("/healthz", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)
	engine.GET("/metrics", telemetry.Handler(registry))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(analyticsHandler).
		Register(recommendationHandler).
		Register(adminHandler).
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
