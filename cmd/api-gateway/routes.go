package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/site-cms-api/api/swagger"
	"github.com/noah-isme/site-cms-api/internal/handler"
	"github.com/noah-isme/site-cms-api/internal/middleware"
	"github.com/noah-isme/site-cms-api/internal/models"
	"github.com/noah-isme/site-cms-api/internal/service"
	"github.com/noah-isme/site-cms-api/pkg/config"
	"github.com/noah-isme/site-cms-api/pkg/localized"
	"github.com/noah-isme/site-cms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/site-cms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/site-cms-api/pkg/middleware/requestid"
	"github.com/noah-isme/site-cms-api/pkg/storage"
)

type routerDeps struct {
	auth          *service.AuthService
	siteConfigs   *service.SiteConfigService
	visibility    *service.VisibilityService
	exports       *service.ExportService
	uploads       *service.UploadService
	uploadStorage *storage.LocalStorage
	metrics       *service.MetricsService
	db            *sqlx.DB
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	defaultLocale := localized.Locale(cfg.Locale.Default)
	if !localized.IsSupported(cfg.Locale.Default) {
		defaultLocale = localized.ZhCN
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.Static(deps.uploadStorage.PublicPath(), deps.uploadStorage.Dir())

	authHandler := handler.NewAuthHandler(deps.auth)
	siteConfigHandler := handler.NewSiteConfigHandler(deps.siteConfigs, deps.exports)
	visibilityHandler := handler.NewVisibilityHandler(deps.visibility)
	publicHandler := handler.NewPublicHandler(deps.siteConfigs, deps.visibility, defaultLocale, cfg.Cache.PublicMaxAge)
	uploadHandler := handler.NewUploadHandler(deps.uploads)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	public := api.Group("/public")
	public.Use(middleware.Locale(defaultLocale))
	public.GET("/site-configs/:key", publicHandler.SiteConfig)
	public.GET("/visibility/resolve", publicHandler.ResolveVisibility)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))
	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/logout", authHandler.Logout)

	editors := secured.Group("")
	editors.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))

	siteConfigs := editors.Group("/site-configs")
	siteConfigs.GET("", siteConfigHandler.List)
	siteConfigs.POST("/history/:id/restore", siteConfigHandler.Restore)
	siteConfigs.GET("/:key", siteConfigHandler.Get)
	siteConfigs.PUT("/:key", siteConfigHandler.Save)
	siteConfigs.GET("/:key/tree", siteConfigHandler.Tree)
	siteConfigs.POST("/:key/edits", siteConfigHandler.ApplyEdits)
	siteConfigs.PUT("/:key/field", siteConfigHandler.UpdateField)
	siteConfigs.GET("/:key/history", siteConfigHandler.History)
	siteConfigs.GET("/:key/history/export", siteConfigHandler.ExportHistory)

	visibility := editors.Group("/visibility")
	visibility.GET("", visibilityHandler.Get)
	visibility.GET("/pages/:page/fields", visibilityHandler.Fields)

	superadmins := visibility.Group("")
	superadmins.Use(middleware.RequireRoles(models.RoleSuperAdmin))
	superadmins.POST("/pages/:page/toggle", visibilityHandler.TogglePage)
	superadmins.POST("/pages/:page/sections/:section/toggle", visibilityHandler.ToggleSection)
	superadmins.POST("/pages/:page/fields/toggle", visibilityHandler.ToggleField)
	superadmins.PUT("/pages/:page/fields", visibilityHandler.SetFields)
	superadmins.PUT("/pages/:page/categories/:category", visibilityHandler.SetCategory)

	editors.POST("/uploads", uploadHandler.Upload)

	return r
}
