// Package auth registers users, issues bearer tokens and resolves them back
// to identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emna-bh/EchecGame/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTooLong    = errors.New("username too long")
	ErrPasswordTooLong    = errors.New("password too long")
)

const MaxUsernameLen = 64

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// Session is the result of a successful register or login.
type Session struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type Options struct {
	BcryptCost int
	TokenTTL   time.Duration
	Logger     *zap.Logger
}

type Service struct {
	users  UserRepository
	tokens TokenStore
	cost   int
	ttl    time.Duration
	logger *zap.Logger
}

func NewService(users UserRepository, tokens TokenStore, opts Options) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, tokens: tokens, cost: cost, ttl: opts.TokenTTL, logger: logger}, nil
}

func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrMissingCredentials
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, username, string(hash))
	if err != nil {
		return nil, err
	}
	s.logger.Info("auth_register", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return s.issue(ctx, u)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// ResolveUser maps a bearer token to an identity. Unknown or expired tokens
// yield nil, nil.
func (s *Service) ResolveUser(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	userID, ok, err := s.tokens.Lookup(ctx, token)
	if err != nil || !ok {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil {
		return nil, err
	}
	id := u.Identity()
	return &id, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.tokens.Delete(ctx, token)
}

func (s *Service) issue(ctx context.Context, u *domain.User) (*Session, error) {
	token := uuid.NewString()
	if err := s.tokens.Put(ctx, token, u.ID, s.ttl); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &Session{UserID: u.ID, Username: u.Username, Token: token}, nil
}
