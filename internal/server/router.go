package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/api/handler"
	"github.com/open-apime/zapdash/internal/api/middleware"
)

type Options struct {
	Env          string
	AllowOrigins []string
	Logger       *zap.Logger

	Tokens   middleware.TokenParser
	Profiles middleware.RoleReader

	HealthHandler   *handler.HealthHandler
	AuthHandler     *handler.AuthHandler
	MeHandler       *handler.MeHandler
	InstanceHandler *handler.InstanceHandler
	CampaignHandler *handler.CampaignHandler
	AdminHandler    *handler.AdminHandler

	RateLimit   middleware.RateLimitOption
	IPRateLimit middleware.IPRateLimitOption
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(log, "/api/healthz", "/api/readyz", "/metrics"))
	router.Use(middleware.Metrics())

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	// Cookie de sessão só trafega com origem explícita.
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	opts.HealthHandler.Register(api)
	opts.AuthHandler.Register(api, middleware.IPRateLimit(opts.IPRateLimit))

	protected := api.Group("")
	protected.Use(middleware.Auth(opts.Tokens))
	protected.Use(middleware.RateLimit(opts.RateLimit))

	opts.MeHandler.Register(protected)
	opts.InstanceHandler.Register(protected)
	opts.CampaignHandler.Register(protected)

	adminGroup := protected.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin(opts.Profiles))
	opts.AdminHandler.Register(adminGroup)

	return router
}
