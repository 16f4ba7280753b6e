package presence

import (
	"context"
	"sync"

	"tawk-service/internal/logger"
)

// Peer is a live connection handle capable of receiving events. The socket
// session implements it; nothing outside the delivery path should hold one.
type Peer interface {
	Send(event string, payload any) error
}

// StatusStore mirrors presence transitions to durable storage. The mirror is
// best-effort: registry state is authoritative for delivery, the store is for
// observability only.
type StatusStore interface {
	SetOnline(ctx context.Context, userID int, connID string) error
	SetOffline(ctx context.Context, userID int) error
}

type entry struct {
	peer   Peer
	connID string
}

// Registry tracks which users currently have a live connection.
type Registry struct {
	mu    sync.RWMutex
	peers map[int]entry
	store StatusStore
	log   *logger.Logger
}

// NewRegistry creates an empty registry. The store may be nil.
func NewRegistry(store StatusStore, log *logger.Logger) *Registry {
	return &Registry{
		peers: make(map[int]entry),
		store: store,
		log:   log,
	}
}

// Register binds the user to a connection. Re-registering overwrites the
// previous handle, which covers reconnects.
func (r *Registry) Register(ctx context.Context, userID int, connID string, p Peer) {
	r.mu.Lock()
	r.peers[userID] = entry{peer: p, connID: connID}
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	if err := r.store.SetOnline(ctx, userID, connID); err != nil {
		r.log.Warn("presence store update failed", "user_id", userID, "error", err)
	}
}

// Unregister clears the user's connection, but only if it is still the one
// identified by connID. A reconnect that already replaced the handle wins.
func (r *Registry) Unregister(ctx context.Context, userID int, connID string) {
	r.mu.Lock()
	current, ok := r.peers[userID]
	if ok && current.connID == connID {
		delete(r.peers, userID)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if !ok || r.store == nil {
		return
	}
	if err := r.store.SetOffline(ctx, userID); err != nil {
		r.log.Warn("presence store update failed", "user_id", userID, "error", err)
	}
}

// Resolve returns the user's current connection handle. It never blocks.
func (r *Registry) Resolve(userID int) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.peers[userID]
	if !ok {
		return nil, false
	}
	return e.peer, true
}

// Online reports whether the user currently has a live connection.
func (r *Registry) Online(userID int) bool {
	_, ok := r.Resolve(userID)
	return ok
}
