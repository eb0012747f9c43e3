package entity

type EventType string

const (
	EventLeaderboardUpdate    EventType = "leaderboard_update"
	EventMatchFound           EventType = "match_found"
	EventGameUpdate           EventType = "game_update"
	EventGameEnd              EventType = "game_end"
	EventOpponentLeft         EventType = "opponent_left"
	EventOpponentDisconnected EventType = "opponent_disconnected"
	EventError                EventType = "error"
)

// Event is an outbound message. Data holds the payload struct of the kind named by Type.
type Event struct {
	Type    EventType `json:"type"`
	Data    any       `json:"data,omitempty"`
	Message string    `json:"message,omitempty"`
}

type MatchFoundData struct {
	MatchID      string `json:"matchId"`
	PlayerSymbol Mark   `json:"playerSymbol"`
	OpponentID   string `json:"opponentId"`
}

type GameUpdateData struct {
	Board       Board `json:"board"`
	CurrentTurn Mark  `json:"currentTurn"`
}

type GameEndData struct {
	Winner Outcome `json:"winner"`
	Board  Board   `json:"board"`
}

type LeaderboardData struct {
	Entries []LeaderboardEntry `json:"entries"`
}

func NewMatchFoundEvent(matchID string, symbol Mark, opponentID string) Event {
	return Event{
		Type: EventMatchFound,
		Data: MatchFoundData{MatchID: matchID, PlayerSymbol: symbol, OpponentID: opponentID},
	}
}

func NewGameUpdateEvent(board Board, turn Mark) Event {
	return Event{Type: EventGameUpdate, Data: GameUpdateData{Board: board, CurrentTurn: turn}}
}

func NewGameEndEvent(outcome Outcome, board Board) Event {
	return Event{Type: EventGameEnd, Data: GameEndData{Winner: outcome, Board: board}}
}

func NewLeaderboardEvent(entries []LeaderboardEntry) Event {
	if entries == nil {
		entries = []LeaderboardEntry{}
	}

	return Event{Type: EventLeaderboardUpdate, Data: LeaderboardData{Entries: entries}}
}

func NewOpponentLeftEvent() Event {
	return Event{Type: EventOpponentLeft}
}

func NewOpponentDisconnectedEvent() Event {
	return Event{Type: EventOpponentDisconnected}
}

func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
