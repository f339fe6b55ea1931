package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/honeypot-card-monitor/internal/gateway/handler"
	"github.com/honeypot-card-monitor/internal/gateway/middleware"
)

// setupRouter configures routes and middleware for the subscription surface
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	subscriptionHandler *handler.SubscriptionHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// Alert delivery channel; sessions connect here before subscribing
	r.GET("/ws", subscriptionHandler.Connect)

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		v1.POST("/subscriptions", subscriptionHandler.Subscribe)
		v1.DELETE("/sessions/:session_id", subscriptionHandler.Unsubscribe)

		connections := v1.Group("/connections")
		{
			connections.GET("", subscriptionHandler.Connections)
			connections.GET("/:session_id/health", subscriptionHandler.SessionHealth)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
