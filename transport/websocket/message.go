package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	typeAuthenticate      = "authenticate"
	typeStartMatchmaking  = "start_matchmaking"
	typeCancelMatchmaking = "cancel_matchmaking"
	typeMakeMove          = "make_move"
	typeLeaveMatch        = "leave_match"
	typeGetLeaderboard    = "get_leaderboard"
	typeStartBotMatch     = "start_bot_match"
)

var (
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Message is an inbound command. Data is decoded by the handler registered for Type.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type AuthenticatePayload struct {
	Username string `json:"username"`
}

type MakeMovePayload struct {
	MatchID   string `json:"matchId"`
	CellIndex *int   `json:"cellIndex"`
}

type LeaveMatchPayload struct {
	MatchID string `json:"matchId"`
}

type StartBotMatchPayload struct {
	Difficulty string `json:"difficulty"`
}

// decodePayload treats a missing or null data field as an empty object.
func decodePayload(data json.RawMessage, payload any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return nil
}
