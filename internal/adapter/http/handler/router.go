package handler

import (
	"eatoff-settlement/internal/adapter/http/middleware"
	redisStore "eatoff-settlement/internal/adapter/storage/redis"
	"eatoff-settlement/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TokenSvc       ports.TokenService
	SettlementSvc  ports.SettlementService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check verifies PostgreSQL and Redis.
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	tokenHandler := NewTokenHandler(deps.TokenSvc)
	customers := v1.Group("/customers/:id")
	{
		customers.POST("/payment-tokens", rl("tokens"), tokenHandler.Issue)
	}

	settlementHandler := NewSettlementHandler(deps.SettlementSvc)
	restaurants := v1.Group("/restaurants/:id")
	{
		restaurants.POST("/redemptions", rl("redemptions"), settlementHandler.Redeem)
		restaurants.GET("/settlements", rl("reports"), settlementHandler.ListSettlements)
		restaurants.GET("/settlements/stats", rl("reports"), settlementHandler.GetStats)
	}

	settlements := v1.Group("/settlements")
	{
		settlements.GET("/:id", rl("reports"), settlementHandler.GetSettlement)
	}

	return r
}
