package sse

import (
	"github.com/gin-gonic/gin"

	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

func InitSSERouter(logger logger.Logger, hubInstance *hub.Hub, rg *gin.RouterGroup) {
	sseHandler := NewServerSentEventHandler(hubInstance, DefaultBuffer, logger)

	listenerGroup := rg.Group("/listeners")
	listenerGroup.GET("/sse", SSEHeadersMiddleware(), sseHandler.Connect)
}
