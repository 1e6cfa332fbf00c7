package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-accessory-hub/internal/infrastructure/accessory"
	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

// AccessoryHandler accepts accessory sockets over WebSocket.
type AccessoryHandler struct {
	hub       *hub.Hub
	provider  *accessory.Provider
	config    accessory.Config
	channelID int
	logger    logger.Logger
	upgrader  websocket.Upgrader
}

func NewAccessoryHandler(
	hubInstance *hub.Hub,
	provider *accessory.Provider,
	config accessory.Config,
	channelID int,
	logger logger.Logger,
) *AccessoryHandler {
	return &AccessoryHandler{
		hub:       hubInstance,
		provider:  provider,
		config:    config,
		channelID: channelID,
		logger:    logger.WithField("handler", "accessory"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// accessories are not browsers
				return true
			},
		},
	}
}

// Connect runs one accessory socket until it is lost.
func (h *AccessoryHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	var peer *hub.Peer
	if name := c.Query("peer"); name != "" {
		peer = &hub.Peer{ID: c.DefaultQuery("id", uuid.NewString()), Name: name}
	}
	if !h.provider.ServiceConnectionRequested(peer) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "peer is required",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	socket := accessory.NewWebSocketSocket(conn, h.channelID, h.config, h.logger)
	id, err := h.provider.ServiceConnectionResponse(peer, socket, accessory.ConnectionSuccess)
	if err != nil {
		h.logger.Errorf("Failed to accept accessory %q: %v", peer.Name, err)
		return
	}

	socket.Serve(c.Request.Context(), h.provider.SocketEvents(id))
	h.logger.Infof("Accessory %q on connection %d disconnected", peer.Name, id)
}
