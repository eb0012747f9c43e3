package entity

import (
	"encoding/json"
	"fmt"
)

type Mark string

const (
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
	EmptyCell Mark = ""
)

// BoardSize is the number of cells on a 3x3 board.
const BoardSize = 9

// Opponent returns the other symbol. EmptyCell has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

func (that Mark) IsValid() bool {
	return that == PlayerX || that == PlayerO
}

// Board is a row-major 3x3 grid. An empty cell is serialized as null.
type Board [BoardSize]Mark

func (that *Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// EmptyCells returns the indexes of the unmarked cells in ascending order.
func (that *Board) EmptyCells() []int {
	cells := make([]int, 0, BoardSize)
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}

// Filled returns the number of marked cells.
func (that *Board) Filled() int {
	return BoardSize - len(that.EmptyCells())
}

func (that Board) MarshalJSON() ([]byte, error) {
	cells := make([]*string, BoardSize)
	for i, cell := range that {
		if cell == EmptyCell {
			continue
		}

		mark := string(cell)
		cells[i] = &mark
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []*string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("invalid board length %d", len(cells))
	}

	var board Board
	for i, cell := range cells {
		if cell == nil {
			continue
		}

		mark := Mark(*cell)
		if !mark.IsValid() {
			return fmt.Errorf("invalid mark %q at cell %d", *cell, i)
		}
		board[i] = mark
	}

	*that = board

	return nil
}
