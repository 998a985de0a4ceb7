package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-autoscheduler/internal/handler"
	"github.com/noah-isme/camp-autoscheduler/internal/middleware"
	"github.com/noah-isme/camp-autoscheduler/internal/models"
	"github.com/noah-isme/camp-autoscheduler/internal/service"
	"github.com/noah-isme/camp-autoscheduler/pkg/config"
	"github.com/noah-isme/camp-autoscheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/camp-autoscheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/camp-autoscheduler/pkg/middleware/requestid"
)

type routeDeps struct {
	autoschedule *handler.AutoScheduleHandler
	metrics      *handler.MetricsHandler
	metricsSvc   *service.MetricsService
	tokens       middleware.TokenValidator
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.tokens), middleware.RBAC(models.RoleAdmin, models.RoleContentTeam))

	camps := api.Group("/camps/:campId/autoschedule")
	camps.POST("/calculate", deps.autoschedule.Calculate)
	camps.POST("/validate", deps.autoschedule.Validate)
	camps.GET("/diff", deps.autoschedule.Diff)
	camps.POST("/apply", deps.autoschedule.Apply)
	camps.POST("/proposals/:id/apply", deps.autoschedule.ApplyProposal)
	camps.GET("/debug", deps.autoschedule.Debug)

	proposals := api.Group("/autoschedule/proposals")
	proposals.GET("/:id", deps.autoschedule.GetProposal)
	proposals.POST("/:id/reject", deps.autoschedule.RejectProposal)
	proposals.GET("/:id/export", deps.autoschedule.Export)

	return r
}
