// Package presence tracks which users currently hold a live connection.
package presence

import (
	"sort"
	"sync"
)

// OnlineUser is a user with at least one live connection.
type OnlineUser struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// Registry is the presence store consumed by the session hub and HTTP layer.
type Registry interface {
	SetOnline(userID int64, username string)
	SetOffline(userID int64)
	// ReleaseIfOwner marks the user offline only when owner still holds the
	// presence slot, so a superseded connection cannot evict its successor.
	ReleaseIfOwner(userID int64, owner any) bool
	Claim(userID int64, username string, owner any)
	List() []OnlineUser
}

type entry struct {
	user  OnlineUser
	owner any
}

// Memory is a process-local Registry. Its contents are rebuilt from zero on
// restart.
type Memory struct {
	mu    sync.RWMutex
	users map[int64]entry
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]entry)}
}

// SetOnline records the user, overwriting any previous display name.
func (m *Memory) SetOnline(userID int64, username string) {
	m.Claim(userID, username, nil)
}

// Claim is SetOnline with an owner token for later ReleaseIfOwner.
func (m *Memory) Claim(userID int64, username string, owner any) {
	m.mu.Lock()
	m.users[userID] = entry{user: OnlineUser{UserID: userID, Username: username}, owner: owner}
	m.mu.Unlock()
}

// SetOffline removes the user. Unknown users are ignored.
func (m *Memory) SetOffline(userID int64) {
	m.mu.Lock()
	delete(m.users, userID)
	m.mu.Unlock()
}

func (m *Memory) ReleaseIfOwner(userID int64, owner any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.users[userID]
	if !ok || e.owner != owner {
		return false
	}
	delete(m.users, userID)
	return true
}

// List returns a snapshot ordered by user id.
func (m *Memory) List() []OnlineUser {
	m.mu.RLock()
	out := make([]OnlineUser, 0, len(m.users))
	for _, e := range m.users {
		out = append(out, e.user)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
