package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/emna-bh/EchecGame/internal/domain"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const readLimit = 64 << 10

// peer adapts a websocket connection to connreg.Conn. Writes may be issued
// from any goroutine.
type peer struct {
	ws *websocket.Conn
}

func (p *peer) Send(ctx context.Context, msg any) error {
	return wsjson.Write(ctx, p.ws, msg)
}

// ServeHTTP upgrades the request, authenticates the token query parameter
// and runs the read loop until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("ws_accept_failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(readLimit)
	ctx := r.Context()

	id, err := h.authenticate(ctx, r.URL.Query().Get("token"))
	if err != nil || id == nil {
		if err != nil {
			h.logger.Warn("ws_auth_error", zap.Error(err))
		}
		_ = ws.Close(websocket.StatusUnsupportedData, h.msgs.Text("ws.close.unauthorized", nil))
		return
	}

	p := &peer{ws: ws}
	c := h.Attach(ctx, *id, p)
	defer h.Detach(context.WithoutCancel(ctx), c)

	for {
		typ, raw, err := ws.Read(ctx)
		if err != nil {
			if st := websocket.CloseStatus(err); st == -1 && !errors.Is(err, context.Canceled) {
				h.logger.Debug("ws_read_error", zap.Int64("user_id", id.ID), zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			h.sendError(ctx, c, "ws.error.invalid_message")
			continue
		}
		h.Handle(ctx, c, raw)
	}
}

func (h *Hub) authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return h.auth.ResolveUser(ctx, token)
}
