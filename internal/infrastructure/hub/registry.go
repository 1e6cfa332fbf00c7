package hub

import (
	"fmt"
	"sync"
	"sync/atomic"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// IDGenerator produces connection ids. It must be safe for concurrent use.
type IDGenerator func() ConnectionID

// NewSequentialIDs returns a generator counting up from 1.
func NewSequentialIDs() IDGenerator {
	var next atomic.Uint64
	return func() ConnectionID {
		return ConnectionID(next.Add(1))
	}
}

// Registry owns the live connections. Enumeration follows registration order.
type Registry struct {
	mu     sync.RWMutex
	conns  *orderedmap.OrderedMap[ConnectionID, *Connection]
	nextID IDGenerator
}

func NewRegistry(gen IDGenerator) *Registry {
	if gen == nil {
		gen = NewSequentialIDs()
	}
	return &Registry{
		conns:  orderedmap.New[ConnectionID, *Connection](),
		nextID: gen,
	}
}

// Add assigns conn a fresh id and registers it. A generated id that is still live
// is rejected with ErrDuplicateConnection and conn is left unregistered.
func (r *Registry) Add(conn *Connection) (ConnectionID, error) {
	id := r.nextID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns.Get(id); exists {
		return 0, fmt.Errorf("add connection %d: %w", id, ErrDuplicateConnection)
	}

	conn.id = id
	conn.setState(StateConnected)
	r.conns.Set(id, conn)
	return id, nil
}

// Remove drops id from the registry. Removing an absent id is a no-op.
func (r *Registry) Remove(id ConnectionID) (*Connection, bool) {
	r.mu.Lock()
	conn, ok := r.conns.Delete(id)
	r.mu.Unlock()

	if ok {
		conn.setState(StateLost)
	}
	return conn, ok
}

func (r *Registry) Lookup(id ConnectionID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns.Get(id)
}

// IDs returns a point-in-time snapshot of the live ids.
func (r *Registry) IDs() []ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ConnectionID, 0, r.conns.Len())
	for pair := r.conns.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// Connections returns a point-in-time snapshot of the live connections.
func (r *Registry) Connections() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, r.conns.Len())
	for pair := r.conns.Oldest(); pair != nil; pair = pair.Next() {
		conns = append(conns, pair.Value)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns.Len()
}

// drain empties the registry and returns what it held.
func (r *Registry) drain() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]*Connection, 0, r.conns.Len())
	for pair := r.conns.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.setState(StateLost)
		conns = append(conns, pair.Value)
	}
	r.conns = orderedmap.New[ConnectionID, *Connection]()
	return conns
}
