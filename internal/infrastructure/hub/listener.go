package hub

import (
	"fmt"
	"sync"

	"go-accessory-hub/internal/infrastructure/logger"
	"go-accessory-hub/internal/infrastructure/metrics"
)

// Listener receives connection events. A returned error means the notification
// could not be delivered; it is logged and the listener stays registered.
// Implementations must be comparable (use pointer receivers) so RemoveListener can
// match them.
type Listener interface {
	OnConnect(id ConnectionID) error
	OnDataReceived(id ConnectionID, payload string) error
	OnError(id ConnectionID, message string) error
}

// ListenerSet is an ordered list of listeners. The same listener added twice is
// notified twice.
type ListenerSet struct {
	mu        sync.RWMutex
	listeners []Listener

	logger  logger.Logger
	metrics *metrics.Metrics
}

func NewListenerSet(logger logger.Logger, m *metrics.Metrics) *ListenerSet {
	return &ListenerSet{
		logger:  logger,
		metrics: m,
	}
}

func (s *ListenerSet) Add(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	n := len(s.listeners)
	s.mu.Unlock()

	s.metrics.SetListeners(n)
}

// Remove drops every occurrence of l and reports how many were removed.
func (s *ListenerSet) Remove(l Listener) int {
	s.mu.Lock()
	kept := s.listeners[:0]
	removed := 0
	for _, existing := range s.listeners {
		if existing == l {
			removed++
			continue
		}
		kept = append(kept, existing)
	}
	// clear the tail so removed listeners can be collected
	for i := len(kept); i < len(s.listeners); i++ {
		s.listeners[i] = nil
	}
	s.listeners = kept
	n := len(s.listeners)
	s.mu.Unlock()

	s.metrics.SetListeners(n)
	return removed
}

func (s *ListenerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

func (s *ListenerSet) snapshot() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Listener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

func (s *ListenerSet) NotifyConnected(id ConnectionID) {
	s.fanout(EventConnected, id, func(l Listener) error { return l.OnConnect(id) })
}

func (s *ListenerSet) NotifyData(id ConnectionID, payload string) {
	s.fanout(EventData, id, func(l Listener) error { return l.OnDataReceived(id, payload) })
}

func (s *ListenerSet) NotifyError(id ConnectionID, message string) {
	s.fanout(EventError, id, func(l Listener) error { return l.OnError(id, message) })
}

// fanout delivers to a snapshot taken under the lock; callbacks run unlocked so a
// listener may add or remove listeners from inside its callback.
func (s *ListenerSet) fanout(kind EventKind, id ConnectionID, deliver func(Listener) error) {
	for _, l := range s.snapshot() {
		s.deliver(kind, id, l, deliver)
	}
}

func (s *ListenerSet) deliver(kind EventKind, id ConnectionID, l Listener, deliver func(Listener) error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("listener panicked: %v", r)
			}
		}()
		err = deliver(l)
	}()

	if err != nil {
		s.metrics.DeliveryFailed(string(kind))
		s.logger.Warnf("Failed to notify listener %T of %s on connection %d: %v", l, kind, id, err)
		return
	}
	s.metrics.Notified(string(kind))
}
