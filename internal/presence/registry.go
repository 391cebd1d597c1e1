package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is the minimal contract a live connection must satisfy. The
// registry never depends on a specific wire protocol.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Sink receives online/offline transitions. Implementations update the
// user's durable presence fields and broadcast the change; both are
// best-effort and must not block for long.
type Sink interface {
	PresenceChanged(userID uuid.UUID, online bool, at time.Time)
}

type userEntry struct {
	mu    sync.Mutex
	conns map[string]Conn
}

// Registry tracks which users hold live connections and routes events to
// them. A user may hold several connections at once (multi-device); all of
// them receive routed events. Entries have their own locks so unrelated
// users never serialize on each other.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*userEntry
	sink    Sink
}

func NewRegistry(sink Sink) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]*userEntry),
		sink:    sink,
	}
}

// Connect registers a live connection. The first connection for a user
// marks them online.
func (r *Registry) Connect(userID uuid.UUID, connID string, conn Conn) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok {
		entry = &userEntry{conns: make(map[string]Conn)}
		r.entries[userID] = entry
	}
	// Insert while still holding the table lock; a Disconnect racing on
	// the user's last connection could otherwise drop the entry between
	// the lookup and the add, stranding this connection.
	entry.mu.Lock()
	wasEmpty := len(entry.conns) == 0
	entry.conns[connID] = conn
	entry.mu.Unlock()
	r.mu.Unlock()

	if wasEmpty && r.sink != nil {
		r.sink.PresenceChanged(userID, true, time.Now())
	}
}

// Disconnect removes exactly the given connection. Removing the user's
// last connection marks them offline with lastSeen set to now.
func (r *Registry) Disconnect(userID uuid.UUID, connID string) {
	r.mu.RLock()
	entry, ok := r.entries[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	conn, ok := entry.conns[connID]
	if ok {
		delete(entry.conns, connID)
	}
	empty := len(entry.conns) == 0
	entry.mu.Unlock()

	if !ok {
		return
	}
	conn.Close()

	if empty {
		r.mu.Lock()
		// Re-check under the write lock; a concurrent Connect may have
		// repopulated the entry.
		entry.mu.Lock()
		stillEmpty := len(entry.conns) == 0
		if stillEmpty {
			delete(r.entries, userID)
		}
		entry.mu.Unlock()
		r.mu.Unlock()

		if stillEmpty && r.sink != nil {
			r.sink.PresenceChanged(userID, false, time.Now())
		}
	}
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	entry, ok := r.entries[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return len(entry.conns) > 0
}

// RouteTo pushes an event to every live connection of the user and
// reports whether at least one existed. A failed push is treated as an
// implicit disconnect, never surfaced to the caller.
func (r *Registry) RouteTo(userID uuid.UUID, event []byte) bool {
	r.mu.RLock()
	entry, ok := r.entries[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	entry.mu.Lock()
	delivered := len(entry.conns) > 0
	var dead []string
	for connID, conn := range entry.conns {
		if err := conn.Send(event); err != nil {
			dead = append(dead, connID)
		}
	}
	entry.mu.Unlock()

	for _, connID := range dead {
		r.Disconnect(userID, connID)
	}
	return delivered
}

// Broadcast pushes an event to every connected user. Used for presence
// transitions, which all connected clients observe.
func (r *Registry) Broadcast(event []byte) {
	r.mu.RLock()
	userIDs := make([]uuid.UUID, 0, len(r.entries))
	for userID := range r.entries {
		userIDs = append(userIDs, userID)
	}
	r.mu.RUnlock()

	for _, userID := range userIDs {
		r.RouteTo(userID, event)
	}
}

// OnlineUsers returns ids of users with at least one live connection.
func (r *Registry) OnlineUsers() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.entries))
	for userID, entry := range r.entries {
		entry.mu.Lock()
		if len(entry.conns) > 0 {
			ids = append(ids, userID)
		}
		entry.mu.Unlock()
	}
	return ids
}

// Shutdown closes every connection and clears the table.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		entry.mu.Lock()
		for _, conn := range entry.conns {
			conn.Close()
		}
		entry.conns = make(map[string]Conn)
		entry.mu.Unlock()
	}
	r.entries = make(map[uuid.UUID]*userEntry)
}
