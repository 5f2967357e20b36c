// Package session runs the live protocol: it authenticates websocket
// connections, tracks presence, pairs players through invites and relays
// validated moves to both sides of a game.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emna-bh/EchecGame/internal/connreg"
	"github.com/emna-bh/EchecGame/internal/domain"
	"github.com/emna-bh/EchecGame/internal/msgcat"
	"github.com/emna-bh/EchecGame/internal/presence"
	"github.com/emna-bh/EchecGame/internal/pvp"
	"github.com/emna-bh/EchecGame/internal/pvpchess"
	"github.com/emna-bh/EchecGame/pkg/chessdto"
	"go.uber.org/zap"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultMoveAttempts = 3
)

// Resolver maps a bearer token to an identity; nil, nil means unknown.
type Resolver interface {
	ResolveUser(ctx context.Context, token string) (*domain.Identity, error)
}

type Options struct {
	Auth     Resolver
	Store    pvpchess.Store
	Presence presence.Registry
	Conns    *connreg.Registry
	Coin     pvp.Coin
	Messages *msgcat.Catalog
	Logger   *zap.Logger

	WriteTimeout   time.Duration
	AllowedOrigins []string
	// MoveAttempts bounds re-validation after a concurrent append.
	MoveAttempts int
}

// Hub is shared by every connection. It holds no lock of its own; shared
// state lives in the registries and the store.
type Hub struct {
	auth     Resolver
	store    pvpchess.Store
	presence presence.Registry
	conns    *connreg.Registry
	coin     pvp.Coin
	msgs     *msgcat.Catalog
	logger   *zap.Logger

	writeTimeout time.Duration
	origins      []string
	moveAttempts int
}

func NewHub(opts Options) (*Hub, error) {
	if opts.Auth == nil {
		return nil, fmt.Errorf("session: auth resolver is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("session: game store is required")
	}
	h := &Hub{
		auth:         opts.Auth,
		store:        opts.Store,
		presence:     opts.Presence,
		conns:        opts.Conns,
		coin:         opts.Coin,
		msgs:         opts.Messages,
		logger:       opts.Logger,
		writeTimeout: opts.WriteTimeout,
		origins:      append([]string(nil), opts.AllowedOrigins...),
		moveAttempts: opts.MoveAttempts,
	}
	if h.presence == nil {
		h.presence = presence.NewMemory()
	}
	if h.conns == nil {
		h.conns = connreg.New()
	}
	if h.coin == nil {
		h.coin = pvp.CryptoCoin{}
	}
	if h.msgs == nil {
		h.msgs = msgcat.Default()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = defaultWriteTimeout
	}
	if h.moveAttempts <= 0 {
		h.moveAttempts = defaultMoveAttempts
	}
	return h, nil
}

func (h *Hub) Presence() presence.Registry { return h.presence }
func (h *Hub) Conns() *connreg.Registry    { return h.conns }

// Client is one authenticated connection.
type Client struct {
	Identity domain.Identity
	Conn     connreg.Conn
}

// Attach makes conn the live connection for id and announces the new
// online list to everyone.
func (h *Hub) Attach(ctx context.Context, id domain.Identity, conn connreg.Conn) *Client {
	c := &Client{Identity: id, Conn: conn}
	h.conns.Register(id.ID, conn)
	h.presence.Claim(id.ID, id.Username, conn)
	h.logger.Info("ws_connect", zap.Int64("user_id", id.ID), zap.String("username", id.Username))
	h.broadcastOnline(ctx)
	return c
}

// Detach removes c from both registries unless a newer connection for the
// same user has replaced it, then re-announces presence. Games are left
// untouched.
func (h *Hub) Detach(ctx context.Context, c *Client) {
	released := h.conns.Release(c.Identity.ID, c.Conn)
	h.presence.ReleaseIfOwner(c.Identity.ID, c.Conn)
	h.logger.Info("ws_disconnect", zap.Int64("user_id", c.Identity.ID), zap.Bool("superseded", !released))
	if released {
		h.broadcastOnline(ctx)
	}
}

// Handle decodes and executes one inbound frame.
func (h *Hub) Handle(ctx context.Context, c *Client, raw []byte) {
	cmd, errKey := decode(raw)
	if cmd == nil {
		h.sendError(ctx, c, errKey)
		return
	}
	switch m := cmd.(type) {
	case inviteCmd:
		h.invite(ctx, c, m)
	case inviteReplyCmd:
		h.inviteReply(ctx, c, m)
	case moveCmd:
		h.move(ctx, c, m)
	case resignCmd:
		h.resign(ctx, c, m)
	}
}

func (h *Hub) invite(ctx context.Context, c *Client, m inviteCmd) {
	to := int64(m.ToUserID)
	target, ok := h.conns.Get(to)
	if !ok {
		h.sendError(ctx, c, "ws.error.user_offline")
		return
	}
	h.send(ctx, target, chessdto.InviteEvent{
		Type:         chessdto.TypeInvite,
		FromUserID:   c.Identity.ID,
		FromUsername: c.Identity.Username,
	})
	h.send(ctx, c.Conn, chessdto.InviteSentEvent{
		Type:       chessdto.TypeInviteSent,
		ToUserID:   to,
		ToUsername: h.usernameOf(to),
	})
}

func (h *Hub) inviteReply(ctx context.Context, c *Client, m inviteReplyCmd) {
	inviterID := int64(m.FromUserID)
	inviter, ok := h.conns.Get(inviterID)
	if !ok {
		h.sendError(ctx, c, "ws.error.inviter_offline")
		return
	}
	if !m.Accepted {
		h.send(ctx, inviter, chessdto.InviteResponseEvent{
			Type:       chessdto.TypeInviteResponse,
			FromUserID: c.Identity.ID,
			Accepted:   false,
		})
		return
	}
	white, black := pvp.AssignColors(h.coin, inviterID, c.Identity.ID)
	g, err := h.store.CreateGame(ctx, white, black)
	if err != nil {
		if errors.Is(err, pvpchess.ErrInvalidParticipants) {
			h.sendError(ctx, c, "ws.error.invalid_response")
			return
		}
		h.internalError(ctx, c, "create_game", err)
		return
	}
	h.send(ctx, inviter, gameStart(g, inviterID))
	h.send(ctx, c.Conn, gameStart(g, c.Identity.ID))
}

func gameStart(g *pvpchess.Game, self int64) chessdto.GameStartEvent {
	color, _ := g.ColorOf(self)
	return chessdto.GameStartEvent{
		Type:       chessdto.TypeGameStart,
		GameID:     g.ID,
		Color:      string(color),
		OpponentID: g.Opponent(self),
		Moves:      []chessdto.MoveEvent{},
	}
}

func (h *Hub) resign(ctx context.Context, c *Client, m resignCmd) {
	g, ok := h.loadParticipantGame(ctx, c, int64(m.GameID))
	if !ok {
		return
	}
	done, err := h.store.FinishGame(ctx, g.ID, g.Opponent(c.Identity.ID), "resign")
	if err != nil {
		if errors.Is(err, pvpchess.ErrGameFinished) {
			h.sendError(ctx, c, "ws.error.game_finished")
			return
		}
		h.internalError(ctx, c, "finish_game", err)
		return
	}
	h.logger.Info("pvp_resign",
		zap.Int64("game_id", done.ID),
		zap.Int64("resigner", c.Identity.ID),
		zap.Int64("winner", done.WinnerID),
	)
	h.broadcastGame(ctx, done, chessdto.GameOverEvent{
		Type:         chessdto.TypeGameOver,
		GameID:       done.ID,
		WinnerUserID: done.WinnerID,
		EndReason:    done.EndReason,
	})
}

// loadParticipantGame applies the checks shared by move and resign. It
// reports false after sending the error.
func (h *Hub) loadParticipantGame(ctx context.Context, c *Client, gameID int64) (*pvpchess.Game, bool) {
	g, err := h.store.GetGame(ctx, gameID)
	if err != nil {
		h.internalError(ctx, c, "get_game", err)
		return nil, false
	}
	switch {
	case g == nil:
		h.sendError(ctx, c, "ws.error.game_not_found")
	case g.Status == pvpchess.StatusFinished:
		h.sendError(ctx, c, "ws.error.game_finished")
	case !g.HasPlayer(c.Identity.ID):
		h.sendError(ctx, c, "ws.error.not_a_player")
	default:
		return g, true
	}
	return nil, false
}

// broadcastGame delivers ev to both players through the registry. Missing
// or failing peers are skipped.
func (h *Hub) broadcastGame(ctx context.Context, g *pvpchess.Game, ev any) {
	for _, uid := range []int64{g.WhiteID, g.BlackID} {
		if conn, ok := h.conns.Get(uid); ok {
			h.send(ctx, conn, ev)
		}
	}
}

func (h *Hub) broadcastOnline(ctx context.Context) {
	online := h.presence.List()
	users := make([]chessdto.OnlineUser, len(online))
	for i, u := range online {
		users[i] = chessdto.OnlineUser{UserID: u.UserID, Username: u.Username}
	}
	ev := chessdto.OnlineUsersEvent{Type: chessdto.TypeOnlineUsers, Users: users}
	for _, conn := range h.conns.All() {
		h.send(ctx, conn, ev)
	}
}

func (h *Hub) usernameOf(userID int64) string {
	for _, u := range h.presence.List() {
		if u.UserID == userID {
			return u.Username
		}
	}
	return ""
}

func (h *Hub) send(ctx context.Context, conn connreg.Conn, msg any) {
	sctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	if err := conn.Send(sctx, msg); err != nil {
		h.logger.Debug("ws_send_failed", zap.Error(err))
	}
}

func (h *Hub) sendError(ctx context.Context, c *Client, key string) {
	h.send(ctx, c.Conn, chessdto.ErrorEvent{Type: chessdto.TypeError, Message: h.msgs.Text(key, nil)})
}

func (h *Hub) internalError(ctx context.Context, c *Client, op string, err error) {
	h.logger.Error("ws_store_error", zap.String("op", op), zap.Int64("user_id", c.Identity.ID), zap.Error(err))
	h.sendError(ctx, c, "ws.error.internal")
}
