package service

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

// NoMove is returned together with ErrNoAvailableMoves.
const NoMove = -1

const winScore = 10

var ErrNoAvailableMoves = errors.New("no available moves")

type BotService interface {
	SelectMove(board entity.Board, side entity.Mark, difficulty entity.Difficulty) (int, error)
}

type botService struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBotService builds a move selector. rnd drives the easy and medium strategies.
func NewBotService(rnd *rand.Rand) BotService {
	return &botService{
		rnd: rnd,
	}
}

func (that *botService) SelectMove(board entity.Board, side entity.Mark, difficulty entity.Difficulty) (int, error) {
	availableCells := board.EmptyCells()
	if len(availableCells) == 0 {
		return NoMove, ErrNoAvailableMoves
	}

	switch difficulty {
	case entity.DifficultyEasy:
		return that.randomMove(availableCells), nil
	case entity.DifficultyMedium:
		// re-rolled on every move, not once per game
		if that.coinFlip() {
			return that.randomMove(availableCells), nil
		}
		return bestMove(board, side), nil
	default:
		return bestMove(board, side), nil
	}
}

func (that *botService) randomMove(availableCells []int) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return availableCells[that.rnd.Intn(len(availableCells))]
}

func (that *botService) coinFlip() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.rnd.Float64() < 0.5
}

// bestMove runs a full minimax for side. Ties keep the lowest cell index.
func bestMove(board entity.Board, side entity.Mark) int {
	move := NoMove
	bestScore := 0

	for _, cell := range board.EmptyCells() {
		board[cell] = side
		score := minimax(board, 0, false, side)
		board[cell] = entity.EmptyCell

		if move == NoMove || score > bestScore {
			move = cell
			bestScore = score
		}
	}

	return move
}

// minimax scores board from the point of view of side. depth counts plies played
// after the candidate move.
func minimax(board entity.Board, depth int, maximizing bool, side entity.Mark) int {
	switch outcome := tictactoe.Evaluate(board); outcome {
	case entity.OutcomeDraw:
		return 0
	case entity.OutcomeNone:
	default:
		if outcome == entity.Outcome(side) {
			return winScore - depth
		}
		return depth - winScore
	}

	mover := side
	if !maximizing {
		mover = side.Opponent()
	}

	best := 0
	for i, cell := range board.EmptyCells() {
		board[cell] = mover
		score := minimax(board, depth+1, !maximizing, side)
		board[cell] = entity.EmptyCell

		if i == 0 || (maximizing && score > best) || (!maximizing && score < best) {
			best = score
		}
	}

	return best
}
