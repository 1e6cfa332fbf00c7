package hub

import (
	"context"
	"fmt"
	"sync"

	"go-accessory-hub/internal/infrastructure/logger"
	"go-accessory-hub/internal/infrastructure/metrics"
)

// DefaultChannelID is the accessory service channel used for outbound payloads.
const DefaultChannelID = 104

// Config holds the hub tuning knobs.
type Config struct {
	ChannelID     int `yaml:"channel_id"      default:"104"`
	SendQueueSize int `yaml:"send_queue_size" default:"64"`
}

type Option func(*Hub)

func WithConfig(cfg Config) Option {
	return func(h *Hub) { h.config = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithIDGenerator replaces the sequential connection id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(h *Hub) { h.idGen = gen }
}

// Hub tracks accessory connections, routes outbound payloads to them and fans
// inbound events out to listeners. The registry lock and the listener lock are
// never held together.
type Hub struct {
	registry  *Registry
	listeners *ListenerSet
	router    *Router

	config  Config
	idGen   IDGenerator
	metrics *metrics.Metrics
	logger  logger.Logger

	running   bool
	runningMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Hub instance
func New(logger logger.Logger, opts ...Option) *Hub {
	h := &Hub{
		config: Config{
			ChannelID:     DefaultChannelID,
			SendQueueSize: 64,
		},
		logger: logger.WithField("component", "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registry = NewRegistry(h.idGen)
	h.listeners = NewListenerSet(h.logger.WithField("component", "listeners"), h.metrics)
	h.router = h.newRouter()
	return h
}

func (h *Hub) newRouter() *Router {
	return NewRouter(
		h.registry,
		h.config.ChannelID,
		h.config.SendQueueSize,
		h.logger.WithField("component", "router"),
		h.metrics,
	)
}

// Start starts the hub and begins accepting connections
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return ErrHubAlreadyRunning
	}

	h.ctx, h.cancel = context.WithCancel(ctx)
	h.running = true

	h.logger.Infof("Hub started successfully (channel %d, send queue %d)", h.config.ChannelID, h.config.SendQueueSize)
	return nil
}

// Stop closes every registered socket and stops all writers. Listeners stay
// registered.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if !h.running {
		return nil
	}

	h.cancel()
	h.running = false

	// a closed router cannot start writers again, so the next Start gets a fresh one
	old := h.router
	h.router = h.newRouter()

	done := make(chan struct{})
	go func() {
		old.Close()
		close(done)
	}()

	for _, conn := range h.registry.drain() {
		if err := conn.Socket().Close(); err != nil {
			h.logger.Errorf("Failed to close connection %d: %v", conn.ID(), err)
		}
	}
	h.metrics.ConnectionsReset()

	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("Hub stop timed out, connection writers are still draining")
		return fmt.Errorf("stop hub: %w", ctx.Err())
	}

	h.logger.Info("Hub stopped successfully")
	return nil
}

// IsRunning returns true if the hub is currently running
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// ConnectionEstablished registers socket and notifies every listener. On error
// the socket is not registered and the caller owns closing it.
func (h *Hub) ConnectionEstablished(socket Socket, peer Peer) (ConnectionID, error) {
	id, err := h.register(socket, peer)
	if err != nil {
		return 0, err
	}

	h.logger.WithFields(logger.Fields{
		"connection_id": id,
		"peer":          peer.Name,
	}).Info("Connection established")

	h.listeners.NotifyConnected(id)
	return id, nil
}

// register adds the connection while holding off Stop, so a connection is
// either drained by Stop or rejected.
func (h *Hub) register(socket Socket, peer Peer) (ConnectionID, error) {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()

	if !h.running {
		return 0, ErrHubNotRunning
	}

	id, err := h.registry.Add(NewConnection(socket, peer))
	if err != nil {
		h.logger.Errorf("Failed to register connection from peer %q: %v", peer.Name, err)
		return 0, err
	}
	h.metrics.ConnectionAdded()
	return id, nil
}

// ConnectionLost removes id. No event is fanned out for a loss.
func (h *Hub) ConnectionLost(id ConnectionID, reason int) {
	conn, ok := h.registry.Remove(id)
	h.currentRouter().Release(id)
	if !ok {
		h.logger.Debugf("Connection %d already gone (reason %d)", id, reason)
		return
	}
	h.metrics.ConnectionRemoved()

	h.logger.WithFields(logger.Fields{
		"connection_id": id,
		"peer":          conn.Peer().Name,
		"reason":        reason,
		"errors":        conn.ErrorCount(),
	}).Info("Connection lost")
}

// DataReceived fans payload out to every listener as text.
func (h *Hub) DataReceived(id ConnectionID, data []byte) {
	payload := string(data)
	h.logger.Debugf("Received %d bytes on connection %d", len(data), id)
	h.listeners.NotifyData(id, payload)
}

// TransportError fans the error out. The connection stays registered.
func (h *Hub) TransportError(id ConnectionID, message string, code int) {
	if conn, ok := h.registry.Lookup(id); ok {
		conn.recordError()
	}
	h.logger.Warnf("Transport error on connection %d: %s (code %d)", id, message, code)
	h.listeners.NotifyError(id, message)
}

// AddListener registers l and replays a connect event for every connection that
// is live at the time of the call. A connection established concurrently may be
// reported twice.
func (h *Hub) AddListener(l Listener) {
	h.listeners.Add(l)

	ids := h.registry.IDs()
	for _, id := range ids {
		h.listeners.deliver(EventConnected, id, l, func(l Listener) error { return l.OnConnect(id) })
	}
	h.logger.Debugf("Listener added, replayed %d connections", len(ids))
}

// RemoveListener drops every registration of l.
func (h *Hub) RemoveListener(l Listener) {
	removed := h.listeners.Remove(l)
	h.logger.Debugf("Listener removed (%d registrations)", removed)
}

// Send queues payload for connection id. It never blocks on I/O and reports
// nothing back: failures are logged.
func (h *Hub) Send(id ConnectionID, payload []byte) {
	h.runningMu.RLock()
	running, router := h.running, h.router
	h.runningMu.RUnlock()

	if !running {
		h.metrics.SendDropped(metrics.DropNotRunning)
		h.logger.Warnf("Hub is not running, dropping send to connection %d", id)
		return
	}

	router.Send(id, append([]byte(nil), payload...))
}

func (h *Hub) currentRouter() *Router {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.router
}

// Lookup returns the live connection with the given id.
func (h *Hub) Lookup(id ConnectionID) (*Connection, bool) {
	return h.registry.Lookup(id)
}

// Connections returns the live connections in registration order.
func (h *Hub) Connections() []*Connection {
	return h.registry.Connections()
}

// ConnectionIDs returns the live ids in registration order.
func (h *Hub) ConnectionIDs() []ConnectionID {
	return h.registry.IDs()
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	return h.registry.Len()
}

func (h *Hub) ListenerCount() int {
	return h.listeners.Len()
}
