package websocket

import (
	"github.com/gin-gonic/gin"

	"go-accessory-hub/internal/infrastructure/accessory"
	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

// InitWebSocketRouter mounts the accessory transport at config.Path.
func InitWebSocketRouter(
	logger logger.Logger,
	hubInstance *hub.Hub,
	provider *accessory.Provider,
	config accessory.Config,
	channelID int,
	rg *gin.RouterGroup,
) {
	wsHandler := NewAccessoryHandler(hubInstance, provider, config, channelID, logger)
	rg.GET(config.Path, wsHandler.Connect)
}
