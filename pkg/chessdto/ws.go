package chessdto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Message types carried in the "type" field.
const (
	TypeOnlineUsers    = "online_users"
	TypeInvite         = "invite"
	TypeInviteSent     = "invite_sent"
	TypeInviteResponse = "invite_response"
	TypeGameStart      = "game_start"
	TypeMove           = "move"
	TypeResign         = "resign"
	TypeGameOver       = "game_over"
	TypeError          = "error"
)

// FlexID decodes from either a JSON number or a numeric string. Null or
// absent leaves it zero.
type FlexID int64

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(b)), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", b)
	}
	*id = FlexID(n)
	return nil
}

// Inbound frames.

type InviteRequest struct {
	Type     string `json:"type"`
	ToUserID FlexID `json:"toUserId"`
}

type InviteReply struct {
	Type       string `json:"type"`
	FromUserID FlexID `json:"fromUserId"`
	Accepted   bool   `json:"accepted"`
}

type MoveRequest struct {
	Type   string `json:"type"`
	GameID FlexID `json:"gameId"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type ResignRequest struct {
	Type   string `json:"type"`
	GameID FlexID `json:"gameId"`
}

// Outbound frames.

type OnlineUsersEvent struct {
	Type  string       `json:"type"`
	Users []OnlineUser `json:"users"`
}

type InviteEvent struct {
	Type         string `json:"type"`
	FromUserID   int64  `json:"fromUserId"`
	FromUsername string `json:"fromUsername"`
}

type InviteSentEvent struct {
	Type       string `json:"type"`
	ToUserID   int64  `json:"toUserId"`
	ToUsername string `json:"toUsername"`
}

type InviteResponseEvent struct {
	Type       string `json:"type"`
	FromUserID int64  `json:"fromUserId"`
	Accepted   bool   `json:"accepted"`
}

type GameStartEvent struct {
	Type       string      `json:"type"`
	GameID     int64       `json:"gameId"`
	Color      string      `json:"color"`
	OpponentID int64       `json:"opponentId"`
	Moves      []MoveEvent `json:"moves"`
}

type MoveEvent struct {
	Type       string `json:"type"`
	GameID     int64  `json:"gameId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Piece      string `json:"piece"`
	MoveNumber int    `json:"moveNumber"`
	ByUserID   int64  `json:"byUserId"`
}

type GameOverEvent struct {
	Type         string `json:"type"`
	GameID       int64  `json:"gameId"`
	WinnerUserID int64  `json:"winnerUserId"`
	EndReason    string `json:"endReason"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Event is a loose decoding target for any outbound frame, used by clients.
type Event struct {
	Type         string       `json:"type"`
	Users        []OnlineUser `json:"users,omitempty"`
	FromUserID   int64        `json:"fromUserId,omitempty"`
	FromUsername string       `json:"fromUsername,omitempty"`
	ToUserID     int64        `json:"toUserId,omitempty"`
	ToUsername   string       `json:"toUsername,omitempty"`
	Accepted     bool         `json:"accepted,omitempty"`
	GameID       int64        `json:"gameId,omitempty"`
	Color        string       `json:"color,omitempty"`
	OpponentID   int64        `json:"opponentId,omitempty"`
	Moves        []MoveEvent  `json:"moves,omitempty"`
	From         string       `json:"from,omitempty"`
	To           string       `json:"to,omitempty"`
	Piece        string       `json:"piece,omitempty"`
	MoveNumber   int          `json:"moveNumber,omitempty"`
	ByUserID     int64        `json:"byUserId,omitempty"`
	WinnerUserID int64        `json:"winnerUserId,omitempty"`
	EndReason    string       `json:"endReason,omitempty"`
	Message      string       `json:"message,omitempty"`
}
