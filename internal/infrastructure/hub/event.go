package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind names the three notifications a listener can receive.
type EventKind string

const (
	EventConnected EventKind = "connect"
	EventData      EventKind = "data"
	EventError     EventKind = "error"
)

// Event is the serialisable form of a listener notification, used by streaming
// listeners such as the SSE endpoint.
type Event struct {
	ID           string       `json:"id"`
	Type         EventKind    `json:"type"`
	ConnectionID ConnectionID `json:"connection_id"`
	Payload      string       `json:"payload,omitempty"`
	Message      string       `json:"message,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

func newEvent(kind EventKind, id ConnectionID) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Type:         kind,
		ConnectionID: id,
		Timestamp:    time.Now().UTC(),
	}
}

func ConnectedEvent(id ConnectionID) *Event {
	return newEvent(EventConnected, id)
}

func DataEvent(id ConnectionID, payload string) *Event {
	e := newEvent(EventData, id)
	e.Payload = payload
	return e
}

func ErrorEvent(id ConnectionID, message string) *Event {
	e := newEvent(EventError, id)
	e.Message = message
	return e
}

// Validate checks an event before it is written to a client.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if e.ID == "" {
		return fmt.Errorf("event ID cannot be empty")
	}
	switch e.Type {
	case EventConnected, EventData, EventError:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// Data returns the JSON body used for the SSE data field.
func (e *Event) Data() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// ChannelListener turns notifications into Events on a bounded channel. It never
// blocks the fanout: a full buffer is reported as ErrListenerBacklogged.
type ChannelListener struct {
	mu     sync.Mutex
	events chan *Event
	closed bool
}

var _ Listener = (*ChannelListener)(nil)

func NewChannelListener(buffer int) *ChannelListener {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelListener{events: make(chan *Event, buffer)}
}

// Events is closed by Close.
func (l *ChannelListener) Events() <-chan *Event {
	return l.events
}

func (l *ChannelListener) OnConnect(id ConnectionID) error {
	return l.push(ConnectedEvent(id))
}

func (l *ChannelListener) OnDataReceived(id ConnectionID, payload string) error {
	return l.push(DataEvent(id, payload))
}

func (l *ChannelListener) OnError(id ConnectionID, message string) error {
	return l.push(ErrorEvent(id, message))
}

func (l *ChannelListener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.events)
}

func (l *ChannelListener) push(e *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrListenerClosed
	}

	select {
	case l.events <- e:
		return nil
	default:
		return ErrListenerBacklogged
	}
}
