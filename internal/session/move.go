package session

import (
	"context"
	"errors"

	"github.com/emna-bh/EchecGame/internal/pvpchess"
	"github.com/emna-bh/EchecGame/internal/rules"
	"github.com/emna-bh/EchecGame/pkg/chessdto"
	"go.uber.org/zap"
)

var reasonKeys = map[rules.Reason]string{
	rules.BadSquare:    "ws.error.invalid_square",
	rules.EmptySource:  "ws.error.empty_source",
	rules.NotYourPiece: "ws.error.not_your_piece",
	rules.Illegal:      "ws.error.illegal_move",
}

// move validates against a fresh snapshot and appends with compare-and-
// append. If another ply lands first the snapshot is reloaded and the move
// re-validated, so two moves can never share a number.
func (h *Hub) move(ctx context.Context, c *Client, m moveCmd) {
	gameID := int64(m.GameID)
	for attempt := 1; attempt <= h.moveAttempts; attempt++ {
		g, ok := h.loadParticipantGame(ctx, c, gameID)
		if !ok {
			return
		}
		history, err := h.store.ListMoves(ctx, g.ID)
		if err != nil {
			h.internalError(ctx, c, "list_moves", err)
			return
		}
		color, _ := g.ColorOf(c.Identity.ID)
		if pvpchess.ToMove(len(history)) != color {
			h.sendError(ctx, c, "ws.error.not_your_turn")
			return
		}
		board := rules.Reconstruct(pvpchess.Plies(history))
		piece, reason := rules.Validate(board, m.From, m.To, color.RulesColor())
		if reason != rules.OK {
			h.sendError(ctx, c, reasonKeys[reason])
			return
		}

		rec, err := h.store.AppendMove(ctx, g.ID, len(history), pvpchess.MoveDraft{
			From:     m.From,
			To:       m.To,
			Piece:    piece.String(),
			ByUserID: c.Identity.ID,
		})
		switch {
		case err == nil:
			h.broadcastGame(ctx, g, chessdto.MoveEvent{
				Type:       chessdto.TypeMove,
				GameID:     g.ID,
				From:       rec.From,
				To:         rec.To,
				Piece:      rec.Piece,
				MoveNumber: rec.Number,
				ByUserID:   rec.ByUserID,
			})
			return
		case errors.Is(err, pvpchess.ErrSequenceConflict):
			h.logger.Debug("pvp_move_conflict", zap.Int64("game_id", g.ID), zap.Int("attempt", attempt))
			continue
		case errors.Is(err, pvpchess.ErrGameFinished):
			h.sendError(ctx, c, "ws.error.game_finished")
			return
		default:
			h.internalError(ctx, c, "append_move", err)
			return
		}
	}
	h.sendError(ctx, c, "ws.error.not_your_turn")
}
