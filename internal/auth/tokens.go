package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore maps opaque bearer tokens to user ids. A zero ttl never expires.
type TokenStore interface {
	Put(ctx context.Context, token string, userID int64, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (int64, bool, error)
	Delete(ctx context.Context, token string) error
}

type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Put(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	return s.rdb.Set(ctx, tokenKey(token), userID, ttl).Err()
}

func (s *RedisTokenStore) Lookup(ctx context.Context, token string) (int64, bool, error) {
	raw, err := s.rdb.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, tokenKey(token)).Err()
}

func tokenKey(token string) string { return "auth:token:" + strings.TrimSpace(token) }

type memToken struct {
	userID  int64
	expires time.Time
}

// MemoryTokenStore keeps tokens in process; expiry is checked on read.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]memToken
	now    func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]memToken), now: time.Now}
}

func (s *MemoryTokenStore) Put(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.tokens[token] = memToken{userID: userID, expires: exp}
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Lookup(ctx context.Context, token string) (int64, bool, error) {
	s.mu.RLock()
	t, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return 0, false, nil
	}
	if !t.expires.IsZero() && !s.now().Before(t.expires) {
		s.mu.Lock()
		delete(s.tokens, token)
		s.mu.Unlock()
		return 0, false, nil
	}
	return t.userID, true, nil
}

func (s *MemoryTokenStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}
