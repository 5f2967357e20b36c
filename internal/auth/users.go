package auth

import (
	"context"
	"sync"
	"time"

	"github.com/emna-bh/EchecGame/internal/domain"
)

// UserRepository stores accounts. Finders return nil, nil when absent.
type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// MemoryUserRepository is used when no database is configured.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.User
	byName map[string]int64
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:   make(map[int64]*domain.User),
		byName: make(map[string]int64),
	}
}

func (m *MemoryUserRepository) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[username]; exists {
		return nil, ErrUsernameTaken
	}
	m.nextID++
	u := &domain.User{ID: m.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	m.byID[u.ID] = u
	m.byName[username] = u.ID
	cp := *u
	return &cp, nil
}

func (m *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemoryUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}
