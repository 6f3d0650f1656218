package presence

import (
	"sort"
	"sync"
)

// Registry tracks which users are online and which gateway connection
// each one owns. One connection per user: joining again replaces the
// previous mapping, matching a client that reconnected.
type Registry struct {
	mu    sync.RWMutex
	users map[string]uint64 // user ID -> connection ID
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]uint64)}
}

// Join records userID as online on connID. A previous mapping for the
// same user is overwritten.
func (r *Registry) Join(userID string, connID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = connID
}

// Lookup returns the connection ID for userID, if online.
func (r *Registry) Lookup(userID string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.users[userID]
	return connID, ok
}

// Online reports whether userID is currently online.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// DisconnectConn removes the user bound to connID and returns their ID.
// Returns false when no user owns that connection, which happens when
// the user reconnected before the old socket finished closing.
func (r *Registry) DisconnectConn(connID uint64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, cid := range r.users {
		if cid == connID {
			delete(r.users, userID)
			return userID, true
		}
	}
	return "", false
}

// Remove drops userID from the registry regardless of connection.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}

// OnlineUsers returns the sorted IDs of all online users.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.users))
	for userID := range r.users {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
