package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/comitanigiacomo/kanso-streak-engine/docs"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/logger"
)

// Metrics is what the router needs from the metrics adapter. A nil
// Handler leaves /metrics unregistered.
type Metrics interface {
	middleware.RequestMetrics
	Handler() http.Handler
}

type RateLimit struct {
	Requests int
	Window   time.Duration
}

type RouterDependencies struct {
	AuthHandler    *AuthHandler
	HabitHandler   *HabitHandler
	EntryHandler   *EntryHandler
	StatsHandler   *StatsHandler
	StreakHandler  *StreakHandler
	ProfileHandler *ProfileHandler
	TokenService   *services.TokenService

	// DB and Redis are optional; nil means the backend is not in use and
	// is left out of the health report.
	DB    *sqlx.DB
	Redis *redis.Client

	Logger    zerolog.Logger
	Metrics   Metrics
	RateLimit *RateLimit
	Swagger   bool
	StartTime time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinLogger(deps.Logger), gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
		if h := deps.Metrics.Handler(); h != nil {
			router.GET("/metrics", gin.WrapH(h))
		}
	}

	if deps.Redis != nil && deps.RateLimit != nil {
		router.Use(middleware.RateLimiterMiddleware(deps.Redis, deps.RateLimit.Requests, deps.RateLimit.Window))
	}

	router.GET("/health", healthCheck(deps))

	if deps.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiV1 := router.Group("/api/v1")

	deps.AuthHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.TokenService))
	{
		deps.HabitHandler.RegisterRoutes(protected)
		deps.EntryHandler.RegisterRoutes(protected)
		deps.StatsHandler.RegisterRoutes(protected)
		deps.StreakHandler.RegisterRoutes(protected)
		deps.ProfileHandler.RegisterRoutes(protected)
	}

	return router
}

func healthCheck(deps RouterDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		body := gin.H{
			"status": "ok",
			"uptime": time.Since(deps.StartTime).String(),
		}
		statusCode := http.StatusOK

		if deps.DB != nil {
			body["database"] = "connected"
			if err := deps.DB.PingContext(ctx); err != nil {
				body["database"] = "unreachable"
				statusCode = http.StatusServiceUnavailable
			}
		}

		if deps.Redis != nil {
			body["redis"] = "connected"
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				body["redis"] = "unreachable"
				statusCode = http.StatusServiceUnavailable
			}
		}

		if statusCode != http.StatusOK {
			body["status"] = "degraded"
		}

		c.JSON(statusCode, body)
	}
}
