package pvpchess

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS pvp_games (
    game_id      BIGINT PRIMARY KEY,
    white_id     BIGINT NOT NULL,
    black_id     BIGINT NOT NULL,
    winner_id    BIGINT,
    result       TEXT NOT NULL,
    end_reason   TEXT,
    transcript   TEXT NOT NULL,
    move_count   INTEGER NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ,
    duration_ms  BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS pvp_moves (
    id           BIGINT PRIMARY KEY,
    game_id      BIGINT NOT NULL REFERENCES pvp_games(game_id) ON DELETE CASCADE,
    move_number  INTEGER NOT NULL,
    from_square  VARCHAR(2) NOT NULL,
    to_square    VARCHAR(2) NOT NULL,
    piece        VARCHAR(2) NOT NULL,
    by_user_id   BIGINT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (game_id, move_number)
);`

// Archive writes finished games and their move logs to Postgres.
type Archive struct {
	db *sql.DB
}

func NewArchive(db *sql.DB) *Archive {
	return &Archive{db: db}
}

func (a *Archive) EnsureSchema(ctx context.Context) error {
	if a == nil || a.db == nil {
		return nil
	}
	_, err := a.db.ExecContext(ctx, archiveSchema)
	return err
}

// SaveResult upserts the game row and replaces its moves in one transaction.
func (a *Archive) SaveResult(ctx context.Context, g *Game, moves []Move) error {
	if a == nil || a.db == nil || g == nil {
		return nil
	}
	result := resultToken(g)
	transcript := buildTranscript(g, moves, result)
	var ended time.Time
	if g.EndedAt != nil {
		ended = *g.EndedAt
	} else {
		ended = g.UpdatedAt
	}
	duration := ended.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	var winner sql.NullInt64
	if g.WinnerID > 0 {
		winner = sql.NullInt64{Int64: g.WinnerID, Valid: true}
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const upsertGame = `INSERT INTO pvp_games (
        game_id, white_id, black_id, winner_id, result, end_reason,
        transcript, move_count, started_at, ended_at, duration_ms
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
      ON CONFLICT (game_id) DO UPDATE SET
        winner_id=EXCLUDED.winner_id,
        result=EXCLUDED.result,
        end_reason=EXCLUDED.end_reason,
        transcript=EXCLUDED.transcript,
        move_count=EXCLUDED.move_count,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`
	if _, err := tx.ExecContext(ctx, upsertGame,
		g.ID, g.WhiteID, g.BlackID, winner, result, g.EndReason,
		transcript, len(moves), g.CreatedAt, ended, duration,
	); err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pvp_moves WHERE game_id = $1`, g.ID); err != nil {
		return fmt.Errorf("clear moves: %w", err)
	}
	const insertMove = `INSERT INTO pvp_moves (
        id, game_id, move_number, from_square, to_square, piece, by_user_id, created_at
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for _, m := range moves {
		if _, err := tx.ExecContext(ctx, insertMove,
			m.ID, g.ID, m.Number, m.From, m.To, m.Piece, m.ByUserID, m.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert move %d: %w", m.Number, err)
		}
	}
	return tx.Commit()
}

// resultToken maps the winner to "white", "black" or "" when undecided.
func resultToken(g *Game) string {
	switch {
	case g.WinnerID == 0:
		return ""
	case g.WinnerID == g.WhiteID:
		return "white"
	case g.WinnerID == g.BlackID:
		return "black"
	}
	return ""
}

func scoreFor(result string) string {
	switch result {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	default:
		return "*"
	}
}

// buildTranscript renders the log in coordinate notation, e.g.
// "1. e2-e4 e7-e5 2. g1-f3 0-1 {resign}".
func buildTranscript(g *Game, moves []Move, result string) string {
	var b strings.Builder
	for i, m := range moves {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d. ", i/2+1)
		}
		fmt.Fprintf(&b, "%s-%s ", m.From, m.To)
	}
	b.WriteString(scoreFor(result))
	if r := strings.TrimSpace(g.EndReason); r != "" {
		fmt.Fprintf(&b, " {%s}", r)
	}
	return b.String()
}
