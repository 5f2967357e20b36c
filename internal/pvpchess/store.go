package pvpchess

import (
	"context"
	"errors"

	"github.com/emna-bh/EchecGame/internal/obslog"
	"go.uber.org/zap"
)

var (
	ErrInvalidParticipants = errors.New("invalid participants")
	ErrGameNotFound        = errors.New("game not found")
	ErrGameFinished        = errors.New("game already finished")
	ErrSequenceConflict    = errors.New("move sequence changed concurrently")
)

// Store is the authoritative game and move log.
type Store interface {
	CreateGame(ctx context.Context, whiteID, blackID int64) (*Game, error)
	// GetGame returns nil, nil when the game does not exist.
	GetGame(ctx context.Context, id int64) (*Game, error)
	FinishGame(ctx context.Context, id, winnerID int64, reason string) (*Game, error)
	// AppendMove stores d as move after+1 only if exactly after moves exist
	// and the game is still active.
	AppendMove(ctx context.Context, gameID int64, after int, d MoveDraft) (*Move, error)
	ListMoves(ctx context.Context, gameID int64) ([]Move, error)
	CountMoves(ctx context.Context, gameID int64) (int, error)
	ActiveGameByUser(ctx context.Context, userID int64) (*Game, error)
}

// Archiver receives finished games for long-term storage.
type Archiver interface {
	SaveResult(ctx context.Context, g *Game, moves []Move) error
}

func validParticipants(whiteID, blackID int64) error {
	if whiteID <= 0 || blackID <= 0 || whiteID == blackID {
		return ErrInvalidParticipants
	}
	return nil
}

// persistIfFinal hands a finished game to the archive if one is attached.
// Archive failures are logged and never fail the finish itself.
func persistIfFinal(ctx context.Context, a Archiver, s Store, g *Game) {
	if a == nil || g == nil || g.Status != StatusFinished {
		return
	}
	moves, err := s.ListMoves(ctx, g.ID)
	if err == nil {
		err = a.SaveResult(ctx, g, moves)
	}
	if err != nil {
		obslog.L().Error("pvp_result_persist_error", zap.Int64("game_id", g.ID), zap.Error(err))
		return
	}
	obslog.L().Info("pvp_result_persist", zap.Int64("game_id", g.ID), zap.String("reason", g.EndReason), zap.Int("moves", len(moves)))
}
