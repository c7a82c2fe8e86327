package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/pledgecam/pledgecam-api/api/swagger"
	"github.com/pledgecam/pledgecam-api/internal/handler"
	"github.com/pledgecam/pledgecam-api/internal/middleware"
	"github.com/pledgecam/pledgecam-api/internal/repository"
	"github.com/pledgecam/pledgecam-api/internal/service"
	"github.com/pledgecam/pledgecam-api/pkg/cache"
	"github.com/pledgecam/pledgecam-api/pkg/config"
	"github.com/pledgecam/pledgecam-api/pkg/database"
	"github.com/pledgecam/pledgecam-api/pkg/export"
	"github.com/pledgecam/pledgecam-api/pkg/jobs"
	"github.com/pledgecam/pledgecam-api/pkg/logger"
	corsmiddleware "github.com/pledgecam/pledgecam-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pledgecam/pledgecam-api/pkg/middleware/requestid"
	"github.com/pledgecam/pledgecam-api/pkg/storage"
)

// @title PledgeCam API
// @version 1.0.0
// @description Pledge video submission backend
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional: a missing cache degrades to direct DB reads.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, roster cache disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	students := repository.NewStudentRepository(db)
	pledges := repository.NewPledgeRepository(db)
	admins := repository.NewAdminRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Orphaned uploads are files written durably before a roster update that
	// then failed; the queue deletes them off the request path.
	cleanupQueue := jobs.NewQueue("upload-cleanup", func(ctx context.Context, job jobs.Job) error {
		return store.Delete(job.Ref)
	}, jobs.QueueConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.MaxRetries,
		RetryDelay: cfg.Cleanup.RetryDelay,
		Logger:     logr,
	})
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	cleanupQueue.Start(rootCtx)
	defer cleanupQueue.Stop()

	// Services.
	metricsSvc := service.NewMetricsService()
	rosterSvc := service.NewRosterService(students, cacheRepo, metricsSvc, logr, service.RosterConfig{
		Grades:   cfg.Roster.Grades,
		CacheTTL: cfg.Roster.CacheTTL,
	})
	pledgeSvc := service.NewPledgeService(pledges, logr)
	submissionSvc := service.NewSubmissionService(students, store, cleanupQueue, rosterSvc, validate, logr, service.SubmissionConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
		Grades:           cfg.Roster.Grades,
	})
	exportSvc := service.NewExportService(students, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	authSvc := service.NewAuthService(admins, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Handlers.
	studentHandler := handler.NewStudentHandler(rosterSvc)
	pledgeHandler := handler.NewPledgeHandler(pledgeSvc)
	videoHandler := handler.NewVideoHandler(submissionSvc, metricsSvc, cfg.Uploads.MaxFileSizeBytes)
	mediaHandler := handler.NewMediaHandler(students, store, signer)
	reportHandler := handler.NewReportHandler(exportSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	healthHandler := handler.NewHealthHandler(db, cacheRepo, metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/users", studentHandler.List)
		api.GET("/users/grade/:grade", studentHandler.ListByGrade)
		api.GET("/pledges/:code", pledgeHandler.GetByCode)
		api.POST("/videos", videoHandler.Upload)
		api.GET("/media/:token", mediaHandler.Download)
		api.POST("/auth/login", authHandler.Login)

		admin := api.Group("/admin")
		admin.Use(middleware.JWT(authSvc))
		{
			admin.GET("/reports/submissions", reportHandler.Submissions)
			admin.GET("/media/:id/link", mediaHandler.Link)
		}
	}

	r.GET("/metrics", healthHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
	logr.Info("server stopped", zap.String("addr", addr))
}
