package accessory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

// ErrorCodeTransport is the code passed to SocketEvents.Error for read failures.
const ErrorCodeTransport = 1

var ErrSocketClosed = errors.New("accessory socket is closed")

// Config holds the WebSocket transport settings.
type Config struct {
	Path         string        `yaml:"path"          default:"/accessory"`
	Channels     []int         `yaml:"channels"`
	PingInterval time.Duration `yaml:"ping_interval" default:"54s"`
	PongTimeout  time.Duration `yaml:"pong_timeout"  default:"60s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadLimit    int64         `yaml:"read_limit"    default:"65536"`
}

// WebSocketSocket is an accessory socket carried by a WebSocket connection.
// Payloads travel as binary messages.
type WebSocketSocket struct {
	conn      *websocket.Conn
	config    Config
	channelID int

	writeMu sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once

	logger logger.Logger
}

var _ hub.Socket = (*WebSocketSocket)(nil)

func NewWebSocketSocket(conn *websocket.Conn, channelID int, config Config, logger logger.Logger) *WebSocketSocket {
	s := &WebSocketSocket{
		conn:      conn,
		config:    config,
		channelID: channelID,
		closed:    make(chan struct{}),
		logger:    logger.WithField("remote", conn.RemoteAddr().String()),
	}

	if config.ReadLimit > 0 {
		conn.SetReadLimit(config.ReadLimit)
	}
	if config.PongTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(config.PongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(config.PongTimeout))
		})
	}
	return s
}

// Send writes data as one binary message.
func (s *WebSocketSocket) Send(channelID int, data []byte) error {
	if s.isClosed() {
		return ErrSocketClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write on channel %d: %w", channelID, err)
	}
	return nil
}

// Close sends a close frame and tears the connection down. It is idempotent.
func (s *WebSocketSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)

		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		s.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		s.writeMu.Unlock()

		err = s.conn.Close()
	})
	return err
}

func (s *WebSocketSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Serve runs the read loop until the peer goes away, ctx is cancelled or the
// socket is closed, then reports the loss exactly once.
func (s *WebSocketSocket) Serve(ctx context.Context, events SocketEvents) {
	stop := make(chan struct{})
	defer close(stop)

	go s.keepAlive(ctx, stop)

	reason := s.readLoop(events)
	s.Close()
	events.ConnectionLost(reason)
}

func (s *WebSocketSocket) readLoop(events SocketEvents) int {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			switch {
			case s.isClosed():
				return LossLocalClose
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				s.logger.Info("Accessory closed the connection")
				return LossPeerDisconnected
			default:
				s.logger.Errorf("Accessory read failed: %v", err)
				events.Error(s.channelID, err.Error(), ErrorCodeTransport)
				return LossReadFailed
			}
		}

		switch messageType {
		case websocket.BinaryMessage, websocket.TextMessage:
			events.Receive(s.channelID, data)
		}
	}
}

// keepAlive pings the peer and closes the socket when ctx ends.
func (s *WebSocketSocket) keepAlive(ctx context.Context, stop <-chan struct{}) {
	var tick <-chan time.Time
	if s.config.PingInterval > 0 {
		ticker := time.NewTicker(s.config.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Errorf("Failed to send ping: %v", err)
				s.Close()
				return
			}

		case <-ctx.Done():
			s.Close()
			return

		case <-stop:
			return
		}
	}
}
