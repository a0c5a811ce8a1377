package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/rvm-assignment-api/api/swagger"
	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/handler"
	internalmiddleware "github.com/noah-isme/rvm-assignment-api/internal/middleware"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	"github.com/noah-isme/rvm-assignment-api/internal/service"
	"github.com/noah-isme/rvm-assignment-api/pkg/cache"
	"github.com/noah-isme/rvm-assignment-api/pkg/config"
	"github.com/noah-isme/rvm-assignment-api/pkg/export"
	"github.com/noah-isme/rvm-assignment-api/pkg/jobs"
	"github.com/noah-isme/rvm-assignment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/rvm-assignment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/rvm-assignment-api/pkg/middleware/requestid"
)

// @title RVM Assignment API
// @version 1.0.0
// @description Weekly meeting role assignment with fairness ranking and approval workflow.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	backends, err := openStores(ctx, cfg.Store, cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer backends.close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	checks := []handler.ReadinessCheck{}
	if backends.ping != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "store", Check: backends.ping})
	}

	var cacheRepo service.CacheRepository
	if cfg.Stats.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, stats cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			checks = append(checks, handler.ReadinessCheck{Name: "cache", Check: cache.Pinger(client)})
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	workflowOpts := []service.WorkflowOption{
		service.WithWorkflowMetrics(metricsSvc),
		service.WithWorkflowCache(cacheSvc),
	}
	var workflowSvc *service.WorkflowService
	var promotionQueue *jobs.Queue
	if cfg.Workflow.AutoPromote {
		promotionQueue = jobs.NewQueue("promotion", func(ctx context.Context, job jobs.Job) error {
			return workflowSvc.PromotionJobHandler()(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Workflow.PromotionWorkers,
			MaxRetries: cfg.Workflow.PromotionRetries,
			RetryDelay: cfg.Workflow.PromotionRetryDelay,
			Logger:     logr,
		})
		workflowOpts = append(workflowOpts, service.WithAutoPromotion(promotionQueue))
	}
	workflowSvc = service.NewWorkflowService(backends.assignments, logr, workflowOpts...)
	if promotionQueue != nil {
		promotionQueue.Start(ctx)
		defer promotionQueue.Stop()
	}

	orchestrator := engine.NewOrchestrator(engine.ConfigFromSettings(cfg.Engine), logr)
	generationSvc := service.NewGenerationService(orchestrator, workflowSvc, backends.roster, backends.history, validate, logr,
		service.WithGenerationMetrics(metricsSvc))
	historySvc := service.NewHistoryService(backends.history, cacheSvc, validate, logr)
	statsSvc := service.NewStatsService(backends.roster, backends.history, cacheSvc, logr)

	exportSvc := service.NewExportService(workflowSvc, logr, export.NewCSVExporter(export.WithComma(cfg.Export.CSVDelimiter)))

	assignmentHandler := handler.NewAssignmentHandler(generationSvc, workflowSvc, exportSvc)
	engineHandler := handler.NewEngineHandler(generationSvc)
	historyHandler := handler.NewHistoryHandler(historySvc, statsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks...)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	admin := internalmiddleware.RequireRoles(models.RoleAdmin)
	reviewers := internalmiddleware.RequireRoles(models.RoleApprover, models.RoleAdmin)

	assignments := secured.Group("/assignments")
	assignments.POST("/generate", admin, internalmiddleware.Audit(logr, "assignment.generate"), assignmentHandler.Generate)
	assignments.POST("/promote", admin, internalmiddleware.Audit(logr, "assignment.promote"), assignmentHandler.Promote)
	assignments.GET("/pending", assignmentHandler.Pending)
	assignments.GET("/week/:weekId", assignmentHandler.Week)
	assignments.GET("/week/:weekId/export", assignmentHandler.ExportWeek)
	assignments.GET("/stats", assignmentHandler.Stats)
	assignments.GET("/:id", assignmentHandler.Get)
	assignments.POST("/:id/actions", reviewers, internalmiddleware.Audit(logr, "assignment.action"), assignmentHandler.Act)
	assignments.PATCH("/:id/approve", reviewers, internalmiddleware.Audit(logr, "assignment.approve"), assignmentHandler.Approve)

	engineRoutes := secured.Group("/engine", admin)
	engineRoutes.POST("/filter-test", engineHandler.FilterTest)
	engineRoutes.POST("/rank-test", engineHandler.RankTest)

	history := secured.Group("/history")
	history.GET("", historyHandler.List)
	history.POST("", admin, internalmiddleware.Audit(logr, "history.import"), historyHandler.Import)
	history.GET("/stats", historyHandler.Workload)
	history.GET("/stats/:personId", historyHandler.PersonWorkload)

	secured.GET("/metrics/system", admin, metricsHandler.System)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
