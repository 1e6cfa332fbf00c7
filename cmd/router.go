package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-accessory-hub/internal/infrastructure/accessory"
	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
	"go-accessory-hub/internal/infrastructure/metrics"
	"go-accessory-hub/internal/interfaces/rest/v1/handler"
	"go-accessory-hub/internal/interfaces/sse"
	"go-accessory-hub/internal/interfaces/websocket"
)

type RouterDeps struct {
	Hub       *hub.Hub
	Provider  *accessory.Provider
	Metrics   *metrics.Metrics
	Accessory accessory.Config
	ChannelID int
	Logger    logger.Logger
}

func InitRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	hubInstance := deps.Hub

	router := gin.New()
	router.Use(requestLogger(log.WithField("component", "gin")))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")

	// Simple debug endpoint
	rootGroup.GET("/debug", func(c *gin.Context) {
		log.Info("Debug endpoint hit!")
		c.JSON(http.StatusOK, gin.H{"debug": "working"})
	})

	// Health check endpoint
	rootGroup.GET("/hub/status", func(c *gin.Context) {
		isRunning := hubInstance.IsRunning()
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"hub_running": isRunning,
			"connections": hubInstance.ConnectionCount(),
			"listeners":   hubInstance.ListenerCount(),
		})
	})

	rootGroup.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	handler.InitRESTRouter(log, hubInstance, rootGroup)
	sse.InitSSERouter(log, hubInstance, rootGroup)
	websocket.InitWebSocketRouter(log, hubInstance, deps.Provider, deps.Accessory, deps.ChannelID, rootGroup)

	return router
}

// requestLogger logs one line per request through the service logger.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(logger.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Debug("HTTP request")
	}
}
