package chessdto

import "time"

// GameState is the read model returned by GET /api/games/active.
type GameState struct {
	GameID       int64  `json:"gameId"`
	WhiteUserID  int64  `json:"whiteUserId"`
	BlackUserID  int64  `json:"blackUserId"`
	Status       string `json:"status"`
	WinnerUserID *int64 `json:"winnerUserId,omitempty"`
	EndReason    string `json:"endReason,omitempty"`
	Moves        []Move `json:"moves"`
}

type Move struct {
	ID         int64     `json:"id"`
	MoveNumber int       `json:"moveNumber"`
	FromSquare string    `json:"fromSquare"`
	ToSquare   string    `json:"toSquare"`
	Piece      string    `json:"piece"`
	ByUserID   int64     `json:"byUserId"`
	CreatedAt  time.Time `json:"createdAt"`
}
