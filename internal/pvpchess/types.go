package pvpchess

import (
	"time"

	"github.com/emna-bh/EchecGame/internal/rules"
)

// Color identifies chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Status represents a game lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// Game is the stored state of a two-player match. WinnerID is zero while
// the game is active.
type Game struct {
	ID        int64      `json:"id"`
	WhiteID   int64      `json:"white_id"`
	BlackID   int64      `json:"black_id"`
	Status    Status     `json:"status"`
	WinnerID  int64      `json:"winner_id,omitempty"`
	EndReason string     `json:"end_reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// ColorOf returns the side userID plays, if any.
func (g *Game) ColorOf(userID int64) (Color, bool) {
	switch userID {
	case g.WhiteID:
		return White, true
	case g.BlackID:
		return Black, true
	}
	return "", false
}

func (g *Game) HasPlayer(userID int64) bool {
	_, ok := g.ColorOf(userID)
	return ok
}

// Opponent returns the other participant, or zero for outsiders.
func (g *Game) Opponent(userID int64) int64 {
	switch userID {
	case g.WhiteID:
		return g.BlackID
	case g.BlackID:
		return g.WhiteID
	}
	return 0
}

// ToMove returns the side whose turn it is after n plies.
func ToMove(n int) Color {
	if n%2 == 0 {
		return White
	}
	return Black
}

// Move is an immutable ply record. Numbers start at 1 and are contiguous
// within a game.
type Move struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"game_id"`
	Number    int       `json:"number"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Piece     string    `json:"piece"`
	ByUserID  int64     `json:"by_user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MoveDraft is a validated move waiting to be appended.
type MoveDraft struct {
	From     string
	To       string
	Piece    string
	ByUserID int64
}

// Plies converts stored moves into the replay form used by the rules engine.
func Plies(moves []Move) []rules.Ply {
	out := make([]rules.Ply, len(moves))
	for i, m := range moves {
		out[i] = rules.Ply{From: m.From, To: m.To, Piece: m.Piece}
	}
	return out
}

func (c Color) RulesColor() rules.Color {
	if c == Black {
		return rules.Black
	}
	return rules.White
}
