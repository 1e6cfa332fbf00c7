package handler

import (
	"github.com/gin-gonic/gin"

	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

func InitRESTRouter(logger logger.Logger, hubInstance *hub.Hub, rg *gin.RouterGroup) {
	connectionHandler := NewConnectionHandler(hubInstance, logger)

	apiGroup := rg.Group("/api/v1")
	{
		apiGroup.GET("/connections", connectionHandler.GetConnections)
		apiGroup.POST("/connections/:id/messages", connectionHandler.SendMessage)
	}
}
