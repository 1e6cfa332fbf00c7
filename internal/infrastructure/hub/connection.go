package hub

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrHubNotRunning       = errors.New("hub is not running")
	ErrHubAlreadyRunning   = errors.New("hub is already running")
	ErrDuplicateConnection = errors.New("connection id already registered")
	ErrListenerClosed      = errors.New("listener is closed")
	ErrListenerBacklogged  = errors.New("listener backlog is full")
)

// ConnectionID identifies one live accessory socket to API callers.
type ConnectionID uint64

// Socket is the transport handle of one accessory connection. The hub never
// inspects it beyond writing payloads and closing it on shutdown.
type Socket interface {
	Send(channelID int, data []byte) error
	Close() error
}

// Peer describes the remote accessory agent behind a socket.
type Peer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateLost
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Connection is one accessory socket tracked by the Registry.
type Connection struct {
	id          ConnectionID
	socket      Socket
	peer        Peer
	connectedAt time.Time

	state  atomic.Int32
	errors atomic.Uint64
}

// NewConnection wraps socket in the Connecting state. The id is assigned by Registry.Add.
func NewConnection(socket Socket, peer Peer) *Connection {
	return &Connection{
		socket:      socket,
		peer:        peer,
		connectedAt: time.Now(),
	}
}

func (c *Connection) ID() ConnectionID       { return c.id }
func (c *Connection) Socket() Socket         { return c.socket }
func (c *Connection) Peer() Peer             { return c.peer }
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }
func (c *Connection) State() State           { return State(c.state.Load()) }

// ErrorCount is the number of transport errors reported while connected.
func (c *Connection) ErrorCount() uint64 { return c.errors.Load() }

func (c *Connection) setState(s State) { c.state.Store(int32(s)) }

func (c *Connection) recordError() { c.errors.Add(1) }
