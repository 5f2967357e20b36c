// Package httpapi exposes the REST surface and mounts the websocket hub.
package httpapi

import (
	"context"
	"net/http"

	"github.com/emna-bh/EchecGame/internal/auth"
	"github.com/emna-bh/EchecGame/internal/domain"
	"github.com/emna-bh/EchecGame/internal/msgcat"
	"github.com/emna-bh/EchecGame/internal/presence"
	"github.com/emna-bh/EchecGame/internal/pvpchess"
	"github.com/emna-bh/EchecGame/internal/render"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Authenticator is the subset of auth.Service the HTTP layer needs.
type Authenticator interface {
	Register(ctx context.Context, username, password string) (*auth.Session, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Logout(ctx context.Context, token string) error
	ResolveUser(ctx context.Context, token string) (*domain.Identity, error)
}

type Deps struct {
	Auth     Authenticator
	Store    pvpchess.Store
	Presence presence.Registry
	Hub      http.Handler
	Renderer render.Renderer
	Messages *msgcat.Catalog
	Logger   *zap.Logger
}

type handlers struct {
	auth     Authenticator
	store    pvpchess.Store
	presence presence.Registry
	renderer render.Renderer
	msgs     *msgcat.Catalog
	logger   *zap.Logger
}

func NewRouter(d Deps) *chi.Mux {
	h := &handlers{
		auth:     d.Auth,
		store:    d.Store,
		presence: d.Presence,
		renderer: d.Renderer,
		msgs:     d.Messages,
		logger:   d.Logger,
	}
	if h.msgs == nil {
		h.msgs = msgcat.Default()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.renderer == nil {
		h.renderer = render.New()
	}
	if h.presence == nil {
		h.presence = presence.NewMemory()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(requestLogger(h.logger)).Get("/healthz", h.health)
	if d.Hub != nil {
		r.Handle("/ws", d.Hub)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requestLogger(h.logger))
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(h.auth, h.msgs))
			r.Post("/auth/logout", h.logout)
			r.Get("/users/online", h.onlineUsers)
			r.Get("/games/active", h.activeGame)
			r.Get("/games/{gameId}/moves", h.gameMoves)
			r.Get("/games/{gameId}/board.png", h.boardPNG)
		})
	})
	return r
}

// LogRoutes prints the registered routes at debug level.
func LogRoutes(r chi.Routes, logger *zap.Logger) {
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		logger.Debug("route", zap.String("method", method), zap.String("path", route))
		return nil
	})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
