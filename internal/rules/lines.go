package rules

import "github.com/rocketscienceinc/tictactoe-variants/internal/entity"

type Line [3]int

// StandardLines are the rows, columns and diagonals of a 3x3 grid.
var StandardLines = []Line{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// CircularLines hold four spokes through the center (cell 0) and eight
// neighbouring triples around the ring (cells 1..8, wrapping).
var CircularLines = circularLines()

func circularLines() []Line {
	lines := []Line{{1, 0, 5}, {2, 0, 6}, {3, 0, 7}, {4, 0, 8}}

	for i := 1; i <= 8; i++ {
		lines = append(lines, Line{i, i%8 + 1, (i+1)%8 + 1})
	}

	return lines
}

// CellPoints are the fixed values of the color variant: corners 2, edges 1, center 3.
var CellPoints = [boardSize]int{2, 1, 2, 1, 3, 1, 2, 1, 2}

const minColorPoints = 6

func colorLine(line Line) bool {
	return CellPoints[line[0]]+CellPoints[line[1]]+CellPoints[line[2]] >= minColorPoints
}

// DetectLine returns the first line fully held by mark that accept allows.
// A nil accept allows every line.
func DetectLine(board *Board, mark entity.Mark, lines []Line, accept func(Line) bool) (Line, bool) {
	for _, line := range lines {
		if board[line[0]] != mark || board[line[1]] != mark || board[line[2]] != mark {
			continue
		}

		if accept == nil || accept(line) {
			return line, true
		}
	}

	return Line{}, false
}
