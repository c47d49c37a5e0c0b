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
	"go.uber.org/zap"

	"github.com/noah-isme/site-cms-api/internal/migrations"
	"github.com/noah-isme/site-cms-api/internal/repository"
	"github.com/noah-isme/site-cms-api/internal/service"
	"github.com/noah-isme/site-cms-api/pkg/cache"
	"github.com/noah-isme/site-cms-api/pkg/config"
	"github.com/noah-isme/site-cms-api/pkg/database"
	"github.com/noah-isme/site-cms-api/pkg/export"
	"github.com/noah-isme/site-cms-api/pkg/jobs"
	"github.com/noah-isme/site-cms-api/pkg/logger"
	"github.com/noah-isme/site-cms-api/pkg/storage"
)

// @title Site CMS API
// @version 1.0.0
// @description Admin backend for localized site content, visibility overrides and config history.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const cacheKeyPrefix = "site-cms:"

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(db.DB); err != nil {
			logr.Fatal("migrate database", zap.Error(err))
		}
	}

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case err != nil:
		logr.Warn("redis unavailable, using in-process cache", zap.Error(err))
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Cache.TTL)
	case redisClient == nil:
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Cache.TTL)
	default:
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, cacheKeyPrefix, logr)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)

	invalidations := jobs.NewQueue("cache-invalidation", func(ctx context.Context, pattern string) error {
		return cacheSvc.Invalidate(ctx, pattern)
	}, jobs.QueueConfig{
		Workers:         1,
		BufferSize:      64,
		MaxRetries:      5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Logger:          logr,
	})
	invalidations.Start(ctx)
	defer invalidations.Stop()

	userRepo := repository.NewUserRepository(db)
	siteConfigRepo := repository.NewSiteConfigRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	siteConfigSvc := service.NewSiteConfigService(siteConfigRepo, cacheSvc, metricsSvc, validate, logr, service.SiteConfigServiceConfig{
		HistoryDefaultLimit: cfg.History.DefaultLimit,
		HistoryMaxLimit:     cfg.History.MaxLimit,
		DiffPreview:         cfg.History.DiffPreview,
		VisibilityKey:       cfg.Visibility.ConfigKey,
		PublicCacheTTL:      cfg.Cache.TTL,
	}).WithInvalidationRetry(invalidations)
	visibilitySvc := service.NewVisibilityService(siteConfigSvc, validate, logr, cfg.Visibility.ConfigKey)
	exportSvc := service.NewExportService(siteConfigSvc, logr, export.NewCSVExporter(), export.NewPDFExporter(cfg.Export.PDFFont))

	uploads, err := storage.NewLocalStorage(cfg.Uploads.Dir, cfg.Uploads.PublicPath)
	if err != nil {
		logr.Fatal("prepare uploads directory", zap.Error(err))
	}
	uploadSvc := service.NewUploadService(uploads, cfg.Uploads.MaxSizeBytes, logr)

	router := newRouter(cfg, logr, routerDeps{
		auth:          authSvc,
		siteConfigs:   siteConfigSvc,
		visibility:    visibilitySvc,
		exports:       exportSvc,
		uploads:       uploadSvc,
		uploadStorage: uploads,
		metrics:       metricsSvc,
		db:            db,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
