package session

import (
	"encoding/json"

	"github.com/emna-bh/EchecGame/pkg/chessdto"
)

// command is the closed set of inbound frames. Each variant is handled by
// exactly one case in Hub.Handle.
type command interface {
	command()
}

type inviteCmd struct{ chessdto.InviteRequest }
type inviteReplyCmd struct{ chessdto.InviteReply }
type moveCmd struct{ chessdto.MoveRequest }
type resignCmd struct{ chessdto.ResignRequest }

func (inviteCmd) command()      {}
func (inviteReplyCmd) command() {}
func (moveCmd) command()        {}
func (resignCmd) command()      {}

// decode parses one text frame. On failure it returns the catalog key of the
// error to report.
func decode(raw []byte) (command, string) {
	var env struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "ws.error.invalid_message"
	}
	if env.Type == nil {
		return nil, "ws.error.missing_type"
	}
	switch *env.Type {
	case chessdto.TypeInvite:
		var c inviteCmd
		if err := json.Unmarshal(raw, &c.InviteRequest); err != nil || c.ToUserID <= 0 {
			return nil, "ws.error.invalid_target"
		}
		return c, ""
	case chessdto.TypeInviteResponse:
		var c inviteReplyCmd
		if err := json.Unmarshal(raw, &c.InviteReply); err != nil || c.FromUserID <= 0 {
			return nil, "ws.error.invalid_response"
		}
		return c, ""
	case chessdto.TypeMove:
		var c moveCmd
		if err := json.Unmarshal(raw, &c.MoveRequest); err != nil || c.GameID <= 0 || c.From == "" || c.To == "" {
			return nil, "ws.error.invalid_move"
		}
		return c, ""
	case chessdto.TypeResign:
		var c resignCmd
		if err := json.Unmarshal(raw, &c.ResignRequest); err != nil || c.GameID <= 0 {
			return nil, "ws.error.invalid_resign"
		}
		return c, ""
	}
	return nil, "ws.error.unknown_type"
}
