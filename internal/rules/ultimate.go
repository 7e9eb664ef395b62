package rules

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

type ultimateState struct {
	SmallBoards [boardSize]Board `json:"small_boards"`
	// BigBoard holds the outcome of every small board: empty, a mark or tie.
	BigBoard   Board         `json:"big_board"`
	NextTarget *int          `json:"next_target"`
	Turn       entity.Mark   `json:"turn"`
	Result     entity.Result `json:"result"`
	WinLine    *Line         `json:"win_line,omitempty"`
	LastMove   *entity.Move  `json:"last_move,omitempty"`
}

type ultimate struct {
	rnd   *rand.Rand
	state ultimateState
}

func newUltimate(rnd *rand.Rand) *ultimate {
	return &ultimate{
		rnd:   rnd,
		state: ultimateState{Turn: entity.MarkX, Result: entity.ResultPending},
	}
}

func (that *ultimate) Kind() entity.Kind {
	return entity.KindUltimate
}

func (that *ultimate) Turn() entity.Mark {
	return that.state.Turn
}

func (that *ultimate) Phase() entity.Phase {
	return entity.PhasePlay
}

func (that *ultimate) Result() entity.Result {
	return that.state.Result
}

func (that *ultimate) LastMove() *entity.Move {
	return that.state.LastMove
}

// NextTarget is the board the next move is forced onto; false means any open board.
func (that *ultimate) NextTarget() (int, bool) {
	if that.state.NextTarget == nil {
		return 0, false
	}

	return *that.state.NextTarget, true
}

func (that *ultimate) Occupied() int {
	total := 0
	for i := range that.state.SmallBoards {
		total += that.state.SmallBoards[i].Occupied()
	}

	return total
}

func (that *ultimate) Validate(mark entity.Mark, action entity.Action) error {
	if err := checkTurn(that.state.Result, that.state.Turn, mark); err != nil {
		return err
	}

	if action.Type != entity.ActionPlace {
		return apperror.ErrUnsupportedAction
	}

	if !inRange(action.Board) || !inRange(action.Cell) {
		return apperror.ErrInvalidCell
	}

	if that.state.BigBoard[action.Board] != entity.MarkEmpty {
		return apperror.ErrBoardClosed
	}

	if target, ok := that.NextTarget(); ok && target != action.Board {
		return apperror.ErrWrongTarget
	}

	if that.state.SmallBoards[action.Board][action.Cell] != entity.MarkEmpty {
		return apperror.ErrCellOccupied
	}

	return nil
}

func (that *ultimate) Apply(mark entity.Mark, action entity.Action) (entity.Move, error) {
	if err := that.Validate(mark, action); err != nil {
		return entity.Move{}, err
	}

	small := &that.state.SmallBoards[action.Board]
	small[action.Cell] = mark

	if _, ok := DetectLine(small, mark, StandardLines, nil); ok {
		that.state.BigBoard[action.Board] = mark
	} else if small.IsFull() {
		that.state.BigBoard[action.Board] = tie
	}

	// the cell just played picks the opponent's board, unless that board is decided
	if that.state.BigBoard[action.Cell] == entity.MarkEmpty {
		target := action.Cell
		that.state.NextTarget = &target
	} else {
		that.state.NextTarget = nil
	}

	move := entity.Move{Action: entity.PlaceOn(action.Board, action.Cell), Mark: mark}
	that.state.LastMove = &move

	if that.CheckResult() == entity.ResultPending {
		that.state.Turn = mark.Opponent()
	}

	return move, nil
}

// CheckResult evaluates the big board. Tied small boards never count towards
// a line; the game is drawn once no small board is open.
func (that *ultimate) CheckResult() entity.Result {
	if that.state.Result.IsTerminal() || that.state.LastMove == nil {
		return that.state.Result
	}

	mover := that.state.LastMove.Mark
	if line, ok := DetectLine(&that.state.BigBoard, mover, StandardLines, nil); ok {
		that.state.Result = entity.WinnerOf(mover)
		that.state.WinLine = &line

		return that.state.Result
	}

	if that.state.BigBoard.IsFull() {
		that.state.Result = entity.ResultDraw
	}

	return that.state.Result
}

func (that *ultimate) SuggestMove(difficulty entity.Difficulty) (entity.Action, error) {
	if that.state.Result.IsTerminal() {
		return entity.Action{}, apperror.ErrGameFinished
	}

	candidates := that.state.BigBoard.EmptyCells()
	if target, ok := that.NextTarget(); ok {
		candidates = []int{target}
	}

	if len(candidates) == 0 {
		return entity.Action{}, apperror.ErrNoAvailableMoves
	}

	board := pick(that.rnd, candidates)
	small := that.state.SmallBoards[board]
	me := that.state.Turn

	empty := small.EmptyCells()
	if len(empty) == 0 {
		return entity.Action{}, apperror.ErrNoAvailableMoves
	}

	if difficulty == entity.DifficultyHard {
		for _, cell := range empty {
			probe := small
			probe[cell] = me

			if _, ok := DetectLine(&probe, me, StandardLines, nil); ok {
				return entity.PlaceOn(board, cell), nil
			}
		}
	}

	return entity.PlaceOn(board, pick(that.rnd, empty)), nil
}

func (that *ultimate) MarshalState() (json.RawMessage, error) {
	state, err := json.Marshal(that.state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ultimate state: %w", err)
	}

	return state, nil
}

func (that *ultimate) RestoreState(state json.RawMessage) error {
	var restored ultimateState
	if err := restore(state, &restored); err != nil {
		return err
	}

	that.state = restored

	return nil
}
