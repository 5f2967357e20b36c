package httpapi

import (
	"net/http"
	"strconv"

	"github.com/emna-bh/EchecGame/internal/domain"
	"github.com/emna-bh/EchecGame/internal/pvpchess"
	"github.com/emna-bh/EchecGame/internal/render"
	"github.com/emna-bh/EchecGame/internal/rules"
	"github.com/emna-bh/EchecGame/pkg/chessdto"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *handlers) activeGame(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	g, err := h.store.ActiveGameByUser(r.Context(), id.ID)
	if err != nil {
		h.internal(w, "active_game", err)
		return
	}
	if g == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	moves, err := h.store.ListMoves(r.Context(), g.ID)
	if err != nil {
		h.internal(w, "list_moves", err)
		return
	}
	writeJSON(w, http.StatusOK, gameState(g, moves))
}

func (h *handlers) gameMoves(w http.ResponseWriter, r *http.Request) {
	g, ok := h.participantGame(w, r)
	if !ok {
		return
	}
	moves, err := h.store.ListMoves(r.Context(), g.ID)
	if err != nil {
		h.internal(w, "list_moves", err)
		return
	}
	writeJSON(w, http.StatusOK, moveDTOs(moves))
}

func (h *handlers) boardPNG(w http.ResponseWriter, r *http.Request) {
	g, ok := h.participantGame(w, r)
	if !ok {
		return
	}
	moves, err := h.store.ListMoves(r.Context(), g.ID)
	if err != nil {
		h.internal(w, "list_moves", err)
		return
	}
	opts := render.Options{Title: h.boardTitle(g, len(moves))}
	if n := len(moves); n > 0 {
		from, ok1 := rules.ParseSquare(moves[n-1].From)
		to, ok2 := rules.ParseSquare(moves[n-1].To)
		if ok1 && ok2 {
			opts.Highlight = &render.Highlight{From: from, To: to}
		}
	}
	img, err := h.renderer.RenderPNG(r.Context(), rules.Reconstruct(pvpchess.Plies(moves)), opts)
	if err != nil {
		h.internal(w, "render_board", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (h *handlers) boardTitle(g *pvpchess.Game, plies int) string {
	if g.Status == pvpchess.StatusFinished {
		return h.msgs.Text("render.title_finished", map[string]any{
			"GameID": g.ID,
			"Result": resultText(g),
		})
	}
	return h.msgs.Text("render.title", map[string]any{
		"GameID": g.ID,
		"Turn":   string(pvpchess.ToMove(plies)),
	})
}

func resultText(g *pvpchess.Game) string {
	switch g.WinnerID {
	case g.WhiteID:
		return "white wins by " + g.EndReason
	case g.BlackID:
		return "black wins by " + g.EndReason
	}
	return "draw"
}

// participantGame loads the game named in the path. Outsiders get the same
// 404 as a missing game.
func (h *handlers) participantGame(w http.ResponseWriter, r *http.Request) (*pvpchess.Game, bool) {
	id, _ := IdentityFromContext(r.Context())
	gameID, err := strconv.ParseInt(chi.URLParam(r, "gameId"), 10, 64)
	if err != nil || gameID <= 0 {
		h.notFound(w)
		return nil, false
	}
	g, err := h.store.GetGame(r.Context(), gameID)
	if err != nil {
		h.internal(w, "get_game", err)
		return nil, false
	}
	if g == nil || !isParticipant(g, id) {
		h.notFound(w)
		return nil, false
	}
	return g, true
}

func isParticipant(g *pvpchess.Game, id *domain.Identity) bool {
	return id != nil && g.HasPlayer(id.ID)
}

func (h *handlers) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not_found", h.msgs.Text("http.error.not_found", nil))
}

func (h *handlers) internal(w http.ResponseWriter, op string, err error) {
	h.logger.Error("http_store_error", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal", h.msgs.Text("http.error.internal", nil))
}

func gameState(g *pvpchess.Game, moves []pvpchess.Move) chessdto.GameState {
	st := chessdto.GameState{
		GameID:      g.ID,
		WhiteUserID: g.WhiteID,
		BlackUserID: g.BlackID,
		Status:      string(g.Status),
		EndReason:   g.EndReason,
		Moves:       moveDTOs(moves),
	}
	if g.WinnerID != 0 {
		winner := g.WinnerID
		st.WinnerUserID = &winner
	}
	return st
}

func moveDTOs(moves []pvpchess.Move) []chessdto.Move {
	out := make([]chessdto.Move, len(moves))
	for i, m := range moves {
		out[i] = chessdto.Move{
			ID:         m.ID,
			MoveNumber: m.Number,
			FromSquare: m.From,
			ToSquare:   m.To,
			Piece:      m.Piece,
			ByUserID:   m.ByUserID,
			CreatedAt:  m.CreatedAt,
		}
	}
	return out
}
