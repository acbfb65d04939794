package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio/backend/internal/config"
	"portfolio/backend/internal/health"
	"portfolio/backend/internal/middleware"
	"portfolio/backend/internal/monitoring"
	"portfolio/backend/internal/ratelimit"
	"portfolio/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	Auth          AdminAuthenticator
	Submissions   service.PublicAPI
	Inbox         service.ProtectedAPI
	SubmitLimiter ratelimit.Limiter   // 为 nil 时不限流
	LoginLimiter  ratelimit.Limiter   // 为 nil 时不限流
	Metrics       *monitoring.Metrics // 为 nil 时不暴露 /metrics
	Health        *health.HealthChecker
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBytes := deps.Config.Server.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = middleware.DefaultBodyLimit
	}

	router := gin.New()

	router.Use(middleware.RecoveryHandler(log, deps.Metrics))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}
	router.Use(middleware.BodySizeLimit(maxBytes))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			break
		}
	}
	if len(corsConfig.AllowOrigins) > 0 || corsConfig.AllowAllOrigins {
		router.Use(gincors.New(corsConfig))
	}

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, "Route not found")
	})

	authHandler := NewAuthHandler(deps.Auth, deps.Metrics, maxBytes, log)
	messageHandler := NewMessageHandler(deps.Submissions, deps.Inbox, maxBytes, log)

	submitLimit := limitOrPass(deps.SubmitLimiter, "submit", deps.Metrics, log)
	loginLimit := limitOrPass(deps.LoginLimiter, "login", deps.Metrics, log)

	// 健康检查与监控
	if deps.Health != nil {
		router.GET("/health", gin.WrapH(deps.Health.ReadyHandler()))
		router.GET("/health/live", gin.WrapH(deps.Health.LiveHandler()))
		router.GET("/health/ready", gin.WrapH(deps.Health.ReadyHandler()))
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", loginLimit, authHandler.Login)
			authRoutes.GET("/me", authHandler.Me)
		}

		messageRoutes := api.Group("/messages")
		{
			messageRoutes.POST("", submitLimit, messageHandler.Submit)

			// 以下端点由 InboxService 逐次校验令牌
			messageRoutes.GET("", messageHandler.List)
			messageRoutes.GET("/stats", messageHandler.Stats)
			messageRoutes.GET("/:id", messageHandler.Get)
			messageRoutes.PUT("/:id/read", messageHandler.MarkRead)
			messageRoutes.DELETE("/:id", messageHandler.Delete)
		}
	}

	return router
}

func limitOrPass(limiter ratelimit.Limiter, scope string, metrics *monitoring.Metrics, log *zap.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimitByIP(limiter, scope, metrics, log)
}
