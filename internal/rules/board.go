package rules

import (
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

const boardSize = 9

// tie marks a decided small board in ultimate; no player ever matches it.
const tie entity.Mark = "tie"

// Board is a 9-cell grid. Index layout depends on the geometry.
type Board [boardSize]entity.Mark

func (that *Board) EmptyCells() []int {
	cells := make([]int, 0, boardSize)
	for i, cell := range that {
		if cell == entity.MarkEmpty {
			cells = append(cells, i)
		}
	}

	return cells
}

func (that *Board) IsFull() bool {
	for _, cell := range that {
		if cell == entity.MarkEmpty {
			return false
		}
	}

	return true
}

func (that *Board) Occupied() int {
	return boardSize - len(that.EmptyCells())
}

func inRange(cell int) bool {
	return cell >= 0 && cell < boardSize
}

func pick(rnd *rand.Rand, cells []int) int {
	return cells[rnd.Intn(len(cells))]
}
