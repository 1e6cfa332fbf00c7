package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

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

var errMockWrite = errors.New("mock write failed")

type sentPayload struct {
	channelID int
	data      string
}

// mockSocket records payloads. When gate is set every Send waits on it first.
type mockSocket struct {
	mu       sync.Mutex
	sent     []sentPayload
	failNext int
	closed   bool
	gate     chan struct{}
	sentCh   chan struct{}
}

func newMockSocket() *mockSocket {
	return &mockSocket{sentCh: make(chan struct{}, 1024)}
}

func (m *mockSocket) Send(channelID int, data []byte) error {
	if m.gate != nil {
		<-m.gate
	}

	m.mu.Lock()
	defer func() {
		m.mu.Unlock()
		m.sentCh <- struct{}{}
	}()

	if m.failNext > 0 {
		m.failNext--
		return errMockWrite
	}
	m.sent = append(m.sent, sentPayload{channelID: channelID, data: string(data)})
	return nil
}

func (m *mockSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSocket) payloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.sent))
	for i, p := range m.sent {
		out[i] = p.data
	}
	return out
}

func (m *mockSocket) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type notification struct {
	kind EventKind
	id   ConnectionID
	text string
}

type recordingListener struct {
	mu     sync.Mutex
	events []notification
	err    error
	panics bool
	hook   func(kind EventKind, id ConnectionID)
}

func (l *recordingListener) record(n notification) error {
	if l.panics {
		panic("listener endpoint died")
	}

	l.mu.Lock()
	l.events = append(l.events, n)
	hook, err := l.hook, l.err
	l.mu.Unlock()

	if hook != nil {
		hook(n.kind, n.id)
	}
	return err
}

func (l *recordingListener) OnConnect(id ConnectionID) error {
	return l.record(notification{kind: EventConnected, id: id})
}

func (l *recordingListener) OnDataReceived(id ConnectionID, payload string) error {
	return l.record(notification{kind: EventData, id: id, text: payload})
}

func (l *recordingListener) OnError(id ConnectionID, message string) error {
	return l.record(notification{kind: EventError, id: id, text: message})
}

func (l *recordingListener) received() []notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]notification, len(l.events))
	copy(out, l.events)
	return out
}

func (l *recordingListener) connectedIDs() []ConnectionID {
	var ids []ConnectionID
	for _, n := range l.received() {
		if n.kind == EventConnected {
			ids = append(ids, n.id)
		}
	}
	return ids
}

// warnLogger records Warn and Warnf messages.
type warnLogger struct {
	mockLogger
	mu    sync.Mutex
	warns []string
}

func (l *warnLogger) Warn(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *warnLogger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l *warnLogger) WithField(key string, value any) logger.Logger { return l }
func (l *warnLogger) WithFields(fields logger.Fields) logger.Logger { return l }

func (l *warnLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}
