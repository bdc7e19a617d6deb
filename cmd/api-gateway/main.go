package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/enginow/enginow-api/api/swagger"
	"github.com/enginow/enginow-api/internal/handler"
	"github.com/enginow/enginow-api/internal/mailer"
	"github.com/enginow/enginow-api/internal/middleware"
	"github.com/enginow/enginow-api/internal/repository"
	"github.com/enginow/enginow-api/internal/service"
	"github.com/enginow/enginow-api/pkg/cache"
	"github.com/enginow/enginow-api/pkg/config"
	"github.com/enginow/enginow-api/pkg/database"
	"github.com/enginow/enginow-api/pkg/jobs"
	"github.com/enginow/enginow-api/pkg/logger"
	corsmiddleware "github.com/enginow/enginow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/enginow/enginow-api/pkg/middleware/requestid"
	"github.com/enginow/enginow-api/pkg/storage"
)

// @title Enginow Enrollment API
// @version 1.0.0
// @description Enrollment, program catalog and admin reporting for the Enginow learning platform
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage backend. Postgres is the default; the in-memory backend keeps
	// local development and demos free of infrastructure.
	var (
		enrollmentStore repository.EnrollmentStore
		programStore    repository.ProgramStore
		readyCheck      func() error
	)
	switch cfg.Store {
	case config.StoreMemory:
		memPrograms := repository.NewMemoryProgramRepository(repository.DefaultPrograms())
		enrollmentStore = repository.NewMemoryEnrollmentRepository(memPrograms.TitleOf)
		programStore = memPrograms
		logr.Info("using in-memory store")
	default:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("postgres connection failed", "error", err)
		}
		defer db.Close()
		programs := repository.NewProgramRepository(db)
		if err := programs.Seed(ctx, repository.DefaultPrograms()); err != nil {
			logr.Sugar().Fatalw("program seed failed", "error", err)
		}
		enrollmentStore = repository.NewEnrollmentRepository(db)
		programStore = programs
		readyCheck = db.Ping
	}

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, true)
		}
	}

	var notifier *service.NotificationService
	if cfg.Email.Enabled {
		var sender mailer.Sender
		switch cfg.Email.Provider {
		case config.EmailSES:
			sender, err = mailer.NewSESSender(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress)
			if err != nil {
				logr.Sugar().Fatalw("ses sender init failed", "error", err)
			}
		default:
			sender = mailer.NewConsoleSender(logr)
		}
		notifier = service.NewNotificationService(sender, jobs.QueueConfig{
			Workers:    1,
			MaxRetries: 2,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		}, logr)
		notifier.Start(ctx)
		defer notifier.Stop()
	}

	referrals := service.NewReferralValidator(cfg.Referral.Codes, cfg.Referral.DiscountPercent)

	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceParams{
		Store:     enrollmentStore,
		Programs:  programStore,
		Referrals: referrals,
		Notifier:  notifierOrNil(notifier),
		Cache:     cacheSvc,
		Metrics:   metrics,
		Logger:    logr,
	})
	programSvc := service.NewProgramService(programStore)
	dashboardSvc := service.NewDashboardService(enrollmentStore, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL:          cfg.Dashboard.CacheTTL,
		DefaultWindowDays: cfg.Dashboard.WindowDays,
	})

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Enrollments: enrollmentStore,
		Aggregates:  enrollmentStore,
		Storage:     exportStorage,
		Signer:      storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		QueueConfig: jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 10 * time.Second,
			Logger:     logr,
		},
		Logger:       logr,
		CleanupEvery: cfg.Exports.CleanupInterval,
		FileTTL:      cfg.Exports.SignedURLTTL,
	})
	exportSvc.Start(ctx)
	defer exportSvc.Stop()

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	programHandler := handler.NewProgramHandler(programSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, readyCheck)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/enrollments", enrollmentHandler.Submit)
		api.GET("/enrollments", enrollmentHandler.List)
		api.GET("/enrollments/:id", enrollmentHandler.Get)
		api.PATCH("/enrollments", enrollmentHandler.Update)
		api.DELETE("/enrollments", enrollmentHandler.Delete)

		api.GET("/training/programs", programHandler.List)
		api.GET("/training/programs/:id", programHandler.Get)

		api.GET("/admin/dashboard", dashboardHandler.Summary)
		api.POST("/admin/exports", exportHandler.Request)
		api.GET("/admin/exports", exportHandler.Status)
		api.GET("/admin/exports/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("shutdown incomplete", "error", err)
	}
}

func notifierOrNil(n *service.NotificationService) service.EnrollmentNotifier {
	if n == nil {
		return nil
	}
	return n
}
