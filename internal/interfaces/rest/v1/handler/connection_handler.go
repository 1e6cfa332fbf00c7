package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

// MaxMessageSize bounds the body of an outbound message.
const MaxMessageSize = 1 << 20

type ConnectionHandler struct {
	hub    *hub.Hub
	logger logger.Logger
}

type ConnectionResponse struct {
	ID          hub.ConnectionID `json:"id"`
	Peer        hub.Peer         `json:"peer"`
	State       string           `json:"state"`
	ConnectedAt time.Time        `json:"connected_at"`
	Errors      uint64           `json:"errors"`
}

func NewConnectionHandler(hubInstance *hub.Hub, logger logger.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		hub:    hubInstance,
		logger: logger.WithField("handler", "connections"),
	}
}

// GetConnections lists the live connections in registration order.
func (h *ConnectionHandler) GetConnections(c *gin.Context) {
	connections := h.hub.Connections()
	resp := make([]ConnectionResponse, len(connections))
	for i, conn := range connections {
		resp[i] = ConnectionResponse{
			ID:          conn.ID(),
			Peer:        conn.Peer(),
			State:       conn.State().String(),
			ConnectedAt: conn.ConnectedAt(),
			Errors:      conn.ErrorCount(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": len(resp),
		"connections":       resp,
		"hub_running":       h.hub.IsRunning(),
	})
}

// SendMessage queues the request body for a connection. Delivery is not
// confirmed: any well-formed id is accepted.
func (h *ConnectionHandler) SendMessage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid connection id",
		})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxMessageSize))
	if err != nil {
		h.logger.Errorf("Failed to read message body: %v", err)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "Message too large",
		})
		return
	}

	h.hub.Send(hub.ConnectionID(id), payload)

	c.JSON(http.StatusAccepted, gin.H{
		"status":        "accepted",
		"connection_id": id,
		"bytes":         len(payload),
	})
}
