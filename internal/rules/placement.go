package rules

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

const circularCenter = 0

type placementState struct {
	Board    Board         `json:"board"`
	Turn     entity.Mark   `json:"turn"`
	Result   entity.Result `json:"result"`
	WinLine  *Line         `json:"win_line,omitempty"`
	LastMove *entity.Move  `json:"last_move,omitempty"`
}

// placement covers the games where marks are only ever added to a 9-cell
// board: classic, misere, circular and color. They differ in geometry, in the
// line predicate and in who a completed line awards.
type placement struct {
	kind   entity.Kind
	rnd    *rand.Rand
	lines  []Line
	accept func(Line) bool
	misere bool

	state placementState
}

func newPlacement(kind entity.Kind, rnd *rand.Rand) *placement {
	game := &placement{
		kind:  kind,
		rnd:   rnd,
		lines: StandardLines,
		state: placementState{Turn: entity.MarkX, Result: entity.ResultPending},
	}

	switch kind {
	case entity.KindCircular:
		game.lines = CircularLines
	case entity.KindColor:
		game.accept = colorLine
	case entity.KindMisere:
		game.misere = true
	}

	return game
}

func (that *placement) Kind() entity.Kind {
	return that.kind
}

func (that *placement) Turn() entity.Mark {
	return that.state.Turn
}

func (that *placement) Phase() entity.Phase {
	return entity.PhasePlay
}

func (that *placement) Result() entity.Result {
	return that.state.Result
}

func (that *placement) LastMove() *entity.Move {
	return that.state.LastMove
}

func (that *placement) Occupied() int {
	return that.state.Board.Occupied()
}

func (that *placement) WinLine() (Line, bool) {
	return derefLine(that.state.WinLine)
}

func (that *placement) Cell(cell int) entity.Mark {
	return that.state.Board[cell]
}

func (that *placement) Validate(mark entity.Mark, action entity.Action) error {
	if err := checkTurn(that.state.Result, that.state.Turn, mark); err != nil {
		return err
	}

	if action.Type != entity.ActionPlace {
		return apperror.ErrUnsupportedAction
	}

	if !inRange(action.Cell) {
		return apperror.ErrInvalidCell
	}

	if that.state.Board[action.Cell] != entity.MarkEmpty {
		return apperror.ErrCellOccupied
	}

	return nil
}

func (that *placement) Apply(mark entity.Mark, action entity.Action) (entity.Move, error) {
	if err := that.Validate(mark, action); err != nil {
		return entity.Move{}, err
	}

	that.state.Board[action.Cell] = mark

	move := entity.Move{Action: entity.Place(action.Cell), Mark: mark}
	that.state.LastMove = &move

	if that.CheckResult() == entity.ResultPending {
		that.state.Turn = mark.Opponent()
	}

	return move, nil
}

// CheckResult looks for a line completed by the last mover. In misere the
// completed line awards the opponent.
func (that *placement) CheckResult() entity.Result {
	if that.state.Result.IsTerminal() || that.state.LastMove == nil {
		return that.state.Result
	}

	mover := that.state.LastMove.Mark
	if line, ok := DetectLine(&that.state.Board, mover, that.lines, that.accept); ok {
		winner := mover
		if that.misere {
			winner = mover.Opponent()
		}

		that.state.Result = entity.WinnerOf(winner)
		that.state.WinLine = &line

		return that.state.Result
	}

	if that.state.Board.IsFull() {
		that.state.Result = entity.ResultDraw
	}

	return that.state.Result
}

func (that *placement) SuggestMove(difficulty entity.Difficulty) (entity.Action, error) {
	if that.state.Result.IsTerminal() {
		return entity.Action{}, apperror.ErrGameFinished
	}

	empty := that.state.Board.EmptyCells()
	if len(empty) == 0 {
		return entity.Action{}, apperror.ErrNoAvailableMoves
	}

	if difficulty == entity.DifficultyEasy {
		return entity.Place(pick(that.rnd, empty)), nil
	}

	me := that.state.Turn

	switch that.kind {
	case entity.KindMisere:
		// No block step: an opponent completing a line loses.
		return entity.Place(that.safeCell(empty, me)), nil
	case entity.KindColor:
		empty = byPoints(empty)
	}

	if cell, ok := that.completingCell(empty, me); ok {
		return entity.Place(cell), nil
	}

	if cell, ok := that.completingCell(empty, me.Opponent()); ok {
		return entity.Place(cell), nil
	}

	switch that.kind {
	case entity.KindColor:
		return entity.Place(empty[0]), nil
	case entity.KindCircular:
		if that.state.Board[circularCenter] == entity.MarkEmpty {
			return entity.Place(circularCenter), nil
		}
	}

	return entity.Place(pick(that.rnd, empty)), nil
}

// safeCell picks a random cell that does not complete a line for mark,
// falling back to the first empty cell when every move loses.
func (that *placement) safeCell(empty []int, mark entity.Mark) int {
	safe := make([]int, 0, len(empty))
	for _, cell := range empty {
		if !that.completes(cell, mark) {
			safe = append(safe, cell)
		}
	}

	if len(safe) == 0 {
		return empty[0]
	}

	return pick(that.rnd, safe)
}

func (that *placement) completingCell(cells []int, mark entity.Mark) (int, bool) {
	for _, cell := range cells {
		if that.completes(cell, mark) {
			return cell, true
		}
	}

	return 0, false
}

func (that *placement) completes(cell int, mark entity.Mark) bool {
	board := that.state.Board
	board[cell] = mark

	_, ok := DetectLine(&board, mark, that.lines, that.accept)

	return ok
}

func (that *placement) MarshalState() (json.RawMessage, error) {
	state, err := json.Marshal(that.state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s state: %w", that.kind, err)
	}

	return state, nil
}

func (that *placement) RestoreState(state json.RawMessage) error {
	var restored placementState
	if err := restore(state, &restored); err != nil {
		return err
	}

	that.state = restored

	return nil
}

// byPoints orders cells by point value, highest first, keeping index order on ties.
func byPoints(cells []int) []int {
	ordered := append([]int(nil), cells...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return CellPoints[ordered[i]] > CellPoints[ordered[j]]
	})

	return ordered
}

func derefLine(line *Line) (Line, bool) {
	if line == nil {
		return Line{}, false
	}

	return *line, true
}
