// Package accessory adapts accessory framework callbacks to the hub. It plays
// the provider side: peers request service connections, the provider accepts
// them, and each accepted socket reports data, errors and loss for its id.
package accessory

import (
	"errors"
	"fmt"

	"go-accessory-hub/internal/infrastructure/hub"
	"go-accessory-hub/internal/infrastructure/logger"
)

// ConnectionResult is the outcome the framework reports for a connection request.
type ConnectionResult int

const (
	ConnectionSuccess ConnectionResult = iota
	ConnectionAlreadyExists
	ConnectionFailure
)

func (r ConnectionResult) String() string {
	switch r {
	case ConnectionSuccess:
		return "success"
	case ConnectionAlreadyExists:
		return "already exists"
	case ConnectionFailure:
		return "failure"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Loss reasons reported to ConnectionLost.
const (
	LossUnknown = iota
	LossPeerDisconnected
	LossLocalClose
	LossReadFailed
)

var (
	ErrConnectionRejected = errors.New("service connection not established")
	ErrNoSocket           = errors.New("service connection response without socket")
)

// Hub is the part of the hub the provider drives.
type Hub interface {
	ConnectionEstablished(socket hub.Socket, peer hub.Peer) (hub.ConnectionID, error)
	ConnectionLost(id hub.ConnectionID, reason int)
	DataReceived(id hub.ConnectionID, data []byte)
	TransportError(id hub.ConnectionID, message string, code int)
}

type Provider struct {
	hub    Hub
	logger logger.Logger
}

func NewProvider(h Hub, logger logger.Logger) *Provider {
	return &Provider{
		hub:    h,
		logger: logger.WithField("component", "provider"),
	}
}

// Init initializes the framework. A non-nil error means the service must not start.
func (p *Provider) Init(sdk SDK) error {
	err := sdk.Initialize()
	if err == nil {
		p.logger.Info("Accessory framework initialized")
		return nil
	}

	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		p.logger.Errorf("Accessory framework unavailable: %v", err)
		return fmt.Errorf("initialize accessory framework: %w", err)
	}

	switch unsupported.Kind {
	case LibraryNotInstalled:
		p.logger.Error("The accessory framework must be installed to use this service")
	case LibraryUpdateRequired:
		p.logger.Error("The accessory framework must be updated to use this service")
	case LibraryUpdateRecommended:
		p.logger.Warn("An accessory framework update is recommended")
	default:
		p.logger.Errorf("Accessory framework unsupported: %v", unsupported)
	}

	if !unsupported.Fatal() {
		return nil
	}
	return fmt.Errorf("initialize accessory framework: %w", err)
}

// ServiceConnectionRequested decides whether to accept a peer's request.
func (p *Provider) ServiceConnectionRequested(peer *hub.Peer) bool {
	if peer == nil {
		p.logger.Warn("Service connection requested without peer, ignoring")
		return false
	}
	p.logger.Infof("Service connection requested by %q, accepting", peer.Name)
	return true
}

// ServiceConnectionResponse registers socket when the connection succeeded.
// On any error the socket, if any, is closed.
func (p *Provider) ServiceConnectionResponse(peer *hub.Peer, socket hub.Socket, result ConnectionResult) (hub.ConnectionID, error) {
	switch result {
	case ConnectionSuccess:
	case ConnectionAlreadyExists:
		p.logger.Error("Service connection response: connection already exists")
		p.closeSocket(socket)
		return 0, fmt.Errorf("%w: %s", ErrConnectionRejected, result)
	default:
		p.logger.Errorf("Service connection response: %s", result)
		p.closeSocket(socket)
		return 0, fmt.Errorf("%w: %s", ErrConnectionRejected, result)
	}

	if socket == nil {
		return 0, ErrNoSocket
	}

	var who hub.Peer
	if peer != nil {
		who = *peer
	}

	id, err := p.hub.ConnectionEstablished(socket, who)
	if err != nil {
		p.closeSocket(socket)
		return 0, fmt.Errorf("register connection: %w", err)
	}
	return id, nil
}

func (p *Provider) closeSocket(socket hub.Socket) {
	if socket == nil {
		return
	}
	if err := socket.Close(); err != nil {
		p.logger.Warnf("Failed to close rejected socket: %v", err)
	}
}

func (p *Provider) FindPeerAgentsResponse(peers []hub.Peer, result int) {
	p.logger.Debugf("Find peer agents response: result=%d peers=%d", result, len(peers))
}

func (p *Provider) AuthenticationResponse(peer *hub.Peer, code int) {
	p.logger.Debugf("Authentication response: code=%d", code)
}

// Error reports a framework-level error that is not tied to a socket.
func (p *Provider) Error(peer *hub.Peer, message string, code int) {
	name := ""
	if peer != nil {
		name = peer.Name
	}
	p.logger.Errorf("Accessory error from %q: %s (code %d)", name, message, code)
}

// SocketEvents are the callbacks of one accepted socket.
type SocketEvents interface {
	Receive(channelID int, data []byte)
	Error(channelID int, message string, code int)
	ConnectionLost(reason int)
}

// SocketEvents binds the socket callbacks to connection id.
func (p *Provider) SocketEvents(id hub.ConnectionID) SocketEvents {
	return &socketEvents{id: id, hub: p.hub, logger: p.logger.WithField("connection_id", id)}
}

type socketEvents struct {
	id     hub.ConnectionID
	hub    Hub
	logger logger.Logger
}

func (e *socketEvents) Receive(channelID int, data []byte) {
	e.logger.Debugf("Received %d bytes on channel %d", len(data), channelID)
	e.hub.DataReceived(e.id, data)
}

func (e *socketEvents) Error(channelID int, message string, code int) {
	e.hub.TransportError(e.id, message, code)
}

func (e *socketEvents) ConnectionLost(reason int) {
	e.hub.ConnectionLost(e.id, reason)
}
