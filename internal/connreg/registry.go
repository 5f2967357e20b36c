// Package connreg maps each authenticated user to exactly one live
// connection handle.
package connreg

import (
	"context"
	"sync"
)

// Conn is a send endpoint for one websocket connection.
type Conn interface {
	Send(ctx context.Context, msg any) error
}

// Registry holds at most one Conn per user. Register replaces without
// closing; callers treat a superseded Conn as defunct.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]Conn
}

func New() *Registry {
	return &Registry{conns: make(map[int64]Conn)}
}

func (r *Registry) Register(userID int64, c Conn) {
	r.mu.Lock()
	r.conns[userID] = c
	r.mu.Unlock()
}

// Unregister removes the user's handle if present.
func (r *Registry) Unregister(userID int64) {
	r.mu.Lock()
	delete(r.conns, userID)
	r.mu.Unlock()
}

// Release removes the mapping only if it still points at c and reports
// whether it did.
func (r *Registry) Release(userID int64, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; !ok || cur != c {
		return false
	}
	delete(r.conns, userID)
	return true
}

func (r *Registry) Get(userID int64) (Conn, bool) {
	r.mu.RLock()
	c, ok := r.conns[userID]
	r.mu.RUnlock()
	return c, ok
}

// All returns a snapshot copy of the mapping.
func (r *Registry) All() map[int64]Conn {
	r.mu.RLock()
	out := make(map[int64]Conn, len(r.conns))
	for id, c := range r.conns {
		out[id] = c
	}
	r.mu.RUnlock()
	return out
}
