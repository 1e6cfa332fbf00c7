package sse

import (
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

// DefaultBuffer is the number of events a slow stream may fall behind before
// further events are dropped for it.
const DefaultBuffer = 256

type ServerSentEventHandler struct {
	hub    *hub.Hub
	buffer int
	logger logger.Logger
}

func NewServerSentEventHandler(hubInstance *hub.Hub, buffer int, logger logger.Logger) *ServerSentEventHandler {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &ServerSentEventHandler{
		hub:    hubInstance,
		buffer: buffer,
		logger: logger.WithField("handler", "sse"),
	}
}

// Connect registers a listener for the lifetime of the stream. The current
// connections arrive first as connect events.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	w := c.Writer
	w.WriteHeader(http.StatusOK)
	w.Flush()

	listener := hub.NewChannelListener(h.buffer)
	h.hub.AddListener(listener)
	defer func() {
		h.hub.RemoveListener(listener)
		listener.Close()
	}()

	h.logger.Infof("SSE listener attached from %s", c.ClientIP())

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Infof("SSE listener from %s detached", c.ClientIP())
			return

		case ev, ok := <-listener.Events():
			if !ok {
				return
			}
			err := sse.Encode(w, sse.Event{
				Id:    ev.ID,
				Event: string(ev.Type),
				Data:  ev,
			})
			if err != nil {
				h.logger.Errorf("Failed to write event %s: %v", ev.ID, err)
				return
			}
			w.Flush()
		}
	}
}

// SSEHeadersMiddleware sets the headers of an event stream.
func SSEHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", sse.ContentType)
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Next()
	}
}
