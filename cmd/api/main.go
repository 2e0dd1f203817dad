package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/selamtools/sunday-school-api/api/swagger"
	"github.com/selamtools/sunday-school-api/internal/handler"
	"github.com/selamtools/sunday-school-api/internal/middleware"
	"github.com/selamtools/sunday-school-api/internal/repository"
	"github.com/selamtools/sunday-school-api/internal/service"
	"github.com/selamtools/sunday-school-api/pkg/cache"
	"github.com/selamtools/sunday-school-api/pkg/config"
	"github.com/selamtools/sunday-school-api/pkg/database"
	"github.com/selamtools/sunday-school-api/pkg/jobs"
	"github.com/selamtools/sunday-school-api/pkg/logger"
	corsmiddleware "github.com/selamtools/sunday-school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/selamtools/sunday-school-api/pkg/middleware/requestid"
	"github.com/selamtools/sunday-school-api/pkg/storage"
)

// @title Sunday School API
// @version 1.0.0
// @description Student registration, attendance tracking, and attendance statistics.
// @BasePath /api/v1
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
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Stats.CacheEnabled {
		client, redisErr := cache.NewRedis(cfg.Redis)
		if redisErr != nil {
			logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", redisErr)
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	statsSvc := service.NewStatsService(studentRepo, attendanceRepo, cacheSvc, logr)
	studentSvc := service.NewStudentService(studentRepo, statsSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, statsSvc, validate, logr)

	studentHandler := handler.NewStudentHandler(studentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	api := r.Group(cfg.APIPrefix)

	students := api.Group("/students")
	students.GET("", studentHandler.List)
	students.POST("", studentHandler.Create)
	students.GET("/:id", studentHandler.Get)
	students.PUT("/:id", studentHandler.Update)
	students.DELETE("/:id", studentHandler.Delete)

	attendance := api.Group("/attendance")
	attendance.GET("", attendanceHandler.List)
	attendance.POST("", attendanceHandler.Save)
	attendance.POST("/bulk", attendanceHandler.SaveBulk)

	stats := api.Group("/stats")
	stats.GET("/attendance", statsHandler.Attendance)
	stats.GET("/summary", statsHandler.Summary)

	if cfg.Reports.Enabled {
		store, storeErr := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if storeErr != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", storeErr)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportRepo := repository.NewReportRepository(db)
		exportSvc := service.NewExportService(statsSvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)
		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc := service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportHandler := handler.NewReportHandler(reportSvc)

		reports := api.Group("/reports")
		reports.POST("", reportHandler.Create)
		reports.GET("/download", reportHandler.Download)
		reports.GET("/:id", reportHandler.Status)

		ctx := context.Background()
		queue.Start(ctx)
		defer queue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
