package accessory

import (
	"context"
	"io"
	"sync"

	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string)                              {}
func (m *mockLogger) Debugf(format string, args ...any)             {}
func (m *mockLogger) Info(msg string)                               {}
func (m *mockLogger) Infof(format string, args ...any)              {}
func (m *mockLogger) Warn(msg string)                               {}
func (m *mockLogger) Warnf(format string, args ...any)              {}
func (m *mockLogger) Error(msg string)                              {}
func (m *mockLogger) Errorf(format string, args ...any)             {}
func (m *mockLogger) Fatal(msg string)                              {}
func (m *mockLogger) Fatalf(format string, args ...any)             {}
func (m *mockLogger) WithField(key string, value any) logger.Logger { return m }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }
func (m *mockLogger) WithContext(ctx context.Context) logger.Logger { return m }
func (m *mockLogger) SetLevel(level logger.Level)                   {}
func (m *mockLogger) SetOutput(output io.Writer)                    {}

type hubCall struct {
	method string
	id     hub.ConnectionID
	text   string
	code   int
	peer   hub.Peer
}

// mockHub records every call made by the provider.
type mockHub struct {
	mu     sync.Mutex
	calls  []hubCall
	nextID hub.ConnectionID
	err    error
	lost   chan hub.ConnectionID
}

func newMockHub() *mockHub {
	return &mockHub{nextID: 1, lost: make(chan hub.ConnectionID, 16)}
}

func (h *mockHub) record(c hubCall) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
}

func (h *mockHub) ConnectionEstablished(socket hub.Socket, peer hub.Peer) (hub.ConnectionID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return 0, h.err
	}
	id := h.nextID
	h.nextID++
	h.calls = append(h.calls, hubCall{method: "established", id: id, peer: peer})
	return id, nil
}

func (h *mockHub) ConnectionLost(id hub.ConnectionID, reason int) {
	h.record(hubCall{method: "lost", id: id, code: reason})
	h.lost <- id
}

func (h *mockHub) DataReceived(id hub.ConnectionID, data []byte) {
	h.record(hubCall{method: "data", id: id, text: string(data)})
}

func (h *mockHub) TransportError(id hub.ConnectionID, message string, code int) {
	h.record(hubCall{method: "error", id: id, text: message, code: code})
}

func (h *mockHub) history() []hubCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]hubCall, len(h.calls))
	copy(out, h.calls)
	return out
}

type closeCounter struct {
	mu     sync.Mutex
	closes int
}

func (s *closeCounter) Send(channelID int, data []byte) error { return nil }

func (s *closeCounter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *closeCounter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type sdkFunc func() error

func (f sdkFunc) Initialize() error { return f() }
