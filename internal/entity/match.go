package entity

import "time"

type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeX    Outcome = "X"
	OutcomeO    Outcome = "O"
	OutcomeDraw Outcome = "draw"
)

func (that Outcome) IsTerminal() bool {
	return that != OutcomeNone
}

// ResultFor maps the shared outcome to the result of the player holding mark.
func (that Outcome) ResultFor(mark Mark) Result {
	switch that {
	case OutcomeDraw:
		return ResultDraw
	case Outcome(mark):
		return ResultWin
	default:
		return ResultLoss
	}
}

type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty falls back to DifficultyHard for unknown values.
func ParseDifficulty(value string) Difficulty {
	switch Difficulty(value) {
	case DifficultyEasy, DifficultyMedium:
		return Difficulty(value)
	default:
		return DifficultyHard
	}
}

type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mark Mark   `json:"mark"`
	Bot  bool   `json:"bot,omitempty"`
}

// Match is one game between exactly two participants. Slot 0 always plays X.
type Match struct {
	ID         string         `json:"id"`
	Players    [2]Participant `json:"players"`
	Board      Board          `json:"board"`
	Turn       Mark           `json:"turn"`
	Outcome    Outcome        `json:"outcome"`
	MoveCount  int            `json:"moveCount"`
	Ranked     bool           `json:"ranked"`
	Difficulty Difficulty     `json:"difficulty,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func NewMatch(id string, first, second Participant) *Match {
	first.Mark = PlayerX
	second.Mark = PlayerO

	return &Match{
		ID:        id,
		Players:   [2]Participant{first, second},
		Turn:      PlayerX,
		Outcome:   OutcomeNone,
		Ranked:    !first.Bot && !second.Bot,
		CreatedAt: time.Now().UTC(),
	}
}

// Participant returns the participant with the given identity.
func (that *Match) Participant(id string) (Participant, bool) {
	for _, player := range that.Players {
		if player.ID == id {
			return player, true
		}
	}

	return Participant{}, false
}

// Opponent returns the participant that is not id.
func (that *Match) Opponent(id string) (Participant, bool) {
	switch id {
	case that.Players[0].ID:
		return that.Players[1], true
	case that.Players[1].ID:
		return that.Players[0], true
	default:
		return Participant{}, false
	}
}

func (that *Match) IsFinished() bool {
	return that.Outcome.IsTerminal()
}

// Summary snapshots a finished match for the history store.
func (that *Match) Summary() MatchSummary {
	return MatchSummary{
		MatchID:    that.ID,
		PlayerX:    that.Players[0].Name,
		PlayerO:    that.Players[1].Name,
		Outcome:    that.Outcome,
		Board:      that.Board,
		MoveCount:  that.MoveCount,
		FinishedAt: time.Now().UTC(),
	}
}

type MatchSummary struct {
	MatchID    string    `json:"matchId"`
	PlayerX    string    `json:"playerX"`
	PlayerO    string    `json:"playerO"`
	Outcome    Outcome   `json:"winner"`
	Board      Board     `json:"board"`
	MoveCount  int       `json:"movesCount"`
	FinishedAt time.Time `json:"finishedAt"`
}
