package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/handler"
	"github.com/noah-isme/sma-bulletin-api/internal/middleware"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/pkg/config"
	"github.com/noah-isme/sma-bulletin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-bulletin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-bulletin-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	bulletins *handler.BulletinHandler
	exports   *handler.ExportHandler
	metrics   *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, verifier *middleware.TokenVerifier, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/export/:token", h.exports.Download)

	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)
	bulletins := api.Group("/bulletins", middleware.JWT(verifier))
	{
		classes := bulletins.Group("/classes/:classId/periods/:periodId", staff)
		classes.GET("", h.bulletins.ListClassPeriod)
		classes.GET("/preview", h.bulletins.Preview)
		classes.GET("/sheet", h.bulletins.Sheet)
		classes.POST("/generate", h.bulletins.GenerateClass)
		classes.POST("/publish", h.bulletins.Publish)

		bulletins.POST("/students/:studentId/classes/:classId/periods/:periodId/generate", staff, h.bulletins.GenerateStudent)
		bulletins.GET("/students/:studentId/classes/:classId/years/:yearId/annual",
			middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), string(models.RoleTeacher), "SELF"),
			h.bulletins.Annual)

		bulletins.GET("/jobs/:id", staff, h.bulletins.JobStatus)
		bulletins.GET("/:id/document", h.bulletins.Document)
	}
	return r
}
