package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/cornelk/hashmap"

	"go-accessory-hub/internal/infrastructure/logger"
	"go-accessory-hub/internal/infrastructure/metrics"
	"go-accessory-hub/internal/infrastructure/routine"
)

// Router delivers outbound payloads. Each connection gets one writer goroutine,
// started on its first send, that drains a bounded queue in order.
type Router struct {
	registry  *Registry
	writers   *hashmap.Map[ConnectionID, *connWriter]
	channelID int
	queueSize int

	logger  logger.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closedMu sync.RWMutex
	closed   bool
}

func NewRouter(registry *Registry, channelID, queueSize int, logger logger.Logger, m *metrics.Metrics) *Router {
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		registry:  registry,
		writers:   hashmap.New[ConnectionID, *connWriter](),
		channelID: channelID,
		queueSize: queueSize,
		logger:    logger,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Send queues payload for connection id and returns immediately. Unknown ids and
// full queues are logged and dropped.
func (r *Router) Send(id ConnectionID, payload []byte) {
	conn, ok := r.registry.Lookup(id)
	if !ok {
		r.metrics.SendDropped(metrics.DropUnknownConnection)
		r.logger.Errorf("Connection %d not found, dropping %d bytes (live connections: %d)", id, len(payload), r.registry.Len())
		return
	}

	w, reason := r.writerFor(conn)
	if w == nil {
		r.metrics.SendDropped(reason)
		r.logger.Warnf("Connection %d unavailable (%s), dropping %d bytes", id, reason, len(payload))
		return
	}

	if reason := w.enqueue(payload); reason != "" {
		r.metrics.SendDropped(reason)
		r.logger.Warnf("Connection %d cannot take a send (%s), dropping %d bytes", id, reason, len(payload))
		return
	}
	r.metrics.SendQueued()
}

// writerFor returns the writer of conn, starting one if needed. A nil writer comes
// with the drop reason: the connection was removed concurrently or the router is closed.
func (r *Router) writerFor(conn *Connection) (*connWriter, string) {
	id := conn.ID()
	if w, ok := r.writers.Get(id); ok {
		return w, ""
	}

	candidate := newConnWriter(conn, r.queueSize)
	w, loaded := r.writers.GetOrInsert(id, candidate)
	if !loaded && !r.start(w) {
		r.writers.Del(id)
		return nil, metrics.DropNotRunning
	}

	// Release may have run between Lookup and GetOrInsert.
	if _, live := r.registry.Lookup(id); !live {
		r.Release(id)
		return nil, metrics.DropUnknownConnection
	}
	return w, ""
}

func (r *Router) start(w *connWriter) bool {
	r.closedMu.RLock()
	defer r.closedMu.RUnlock()

	if r.closed {
		return false
	}

	r.wg.Add(1)
	routine.Go(r.ctx, fmt.Sprintf("hub-writer-%d", w.id), func(ctx context.Context) {
		defer r.wg.Done()
		w.run(ctx, r.channelID, r.logger, r.metrics)
	})
	return true
}

// Release stops the writer of a lost connection. Queued payloads are discarded.
func (r *Router) Release(id ConnectionID) {
	w, ok := r.writers.Get(id)
	if !ok {
		return
	}
	r.writers.Del(id)
	w.stop()
}

// Close stops every writer and waits for them to exit.
func (r *Router) Close() {
	r.closedMu.Lock()
	r.closed = true
	r.closedMu.Unlock()

	r.cancel()
	r.writers.Range(func(id ConnectionID, w *connWriter) bool {
		r.writers.Del(id)
		w.stop()
		return true
	})
	r.wg.Wait()
}

// Writers reports how many connections currently own a writer goroutine.
func (r *Router) Writers() int {
	return r.writers.Len()
}

type connWriter struct {
	id     ConnectionID
	socket Socket
	queue  chan []byte

	done     chan struct{}
	stopOnce sync.Once
}

func newConnWriter(conn *Connection, size int) *connWriter {
	return &connWriter{
		id:     conn.ID(),
		socket: conn.Socket(),
		queue:  make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

// enqueue returns the drop reason, or "" when payload was queued.
func (w *connWriter) enqueue(payload []byte) string {
	select {
	case <-w.done:
		return metrics.DropUnknownConnection
	default:
	}

	select {
	case w.queue <- payload:
		return ""
	default:
		return metrics.DropQueueFull
	}
}

func (w *connWriter) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *connWriter) run(ctx context.Context, channelID int, log logger.Logger, m *metrics.Metrics) {
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case payload := <-w.queue:
			if err := w.socket.Send(channelID, payload); err != nil {
				m.SendFailed()
				log.Errorf("Failed to send %d bytes to connection %d: %v", len(payload), w.id, err)
				continue
			}
			m.SendWritten()
		}
	}
}
