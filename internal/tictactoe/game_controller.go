package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// MakeTurn applies mark at cell and updates the outcome. The match is untouched on error.
func MakeTurn(match *entity.Match, mark entity.Mark, cell int) error {
	if match.IsFinished() {
		return apperror.ErrGameFinished
	}

	if err := validateMove(&match.Board, match.Turn, mark, cell); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	match.Board[cell] = mark
	match.MoveCount++
	match.Turn = mark.Opponent()
	match.Outcome = Evaluate(match.Board)

	return nil
}

// validateMove - checks if the move is valid.
func validateMove(board *entity.Board, turn, mark entity.Mark, cell int) error {
	if turn != mark {
		return apperror.ErrNotYourTurn
	}

	if cell < 0 || cell >= len(board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// Evaluate reports the winner of the board, a draw when it is full, or OutcomeNone.
func Evaluate(board entity.Board) entity.Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return entity.Outcome(a)
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return entity.OutcomeNone
	}

	return entity.OutcomeDraw
}
