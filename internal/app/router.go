package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler *handler.RideHandler
	RedisClient *redis.Client
	NewRelicApp *newrelic.Application
	JWTSecret   string
	Logger      zerolog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(deps.Logger))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := middleware.AuthMiddleware(deps.JWTSecret)
	idempotency := middleware.IdempotencyMiddleware(deps.RedisClient)

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		rides := v1.Group("/rides")
		{
			// Read endpoints are public.
			rides.GET("", deps.RideHandler.ListRides)
			rides.GET("/:id", deps.RideHandler.GetRide)

			// Mutations require authentication; retries with an
			// Idempotency-Key replay the stored response.
			rides.POST("", auth, idempotency, deps.RideHandler.CreateRide)
			rides.PATCH("/:id", auth, idempotency, deps.RideHandler.UpdateRide)
			rides.POST("/:id/cancel", auth, idempotency, deps.RideHandler.CancelRide)
			rides.POST("/:id/passengers", auth, idempotency, deps.RideHandler.BookRide)
			rides.DELETE("/:id/passengers", auth, idempotency, deps.RideHandler.LeaveRide)
		}
	}

	return router
}
