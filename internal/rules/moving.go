package rules

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

const piecesPerPlayer = 3

type movingState struct {
	Board    Board               `json:"board"`
	Turn     entity.Mark         `json:"turn"`
	Phase    entity.Phase        `json:"phase"`
	Placed   map[entity.Mark]int `json:"pieces_count"`
	Result   entity.Result       `json:"result"`
	WinLine  *Line               `json:"win_line,omitempty"`
	LastMove *entity.Move        `json:"last_move,omitempty"`
}

// moving starts like classic until both sides have three pieces, then pieces
// slide to orthogonally adjacent empty cells. Lines only count once sliding
// has started.
type moving struct {
	rnd   *rand.Rand
	state movingState
}

type step struct {
	from, to int
}

func newMoving(rnd *rand.Rand) *moving {
	return &moving{
		rnd: rnd,
		state: movingState{
			Turn:   entity.MarkX,
			Phase:  entity.PhasePlacement,
			Placed: map[entity.Mark]int{entity.MarkX: 0, entity.MarkO: 0},
			Result: entity.ResultPending,
		},
	}
}

func (that *moving) Kind() entity.Kind {
	return entity.KindMoving
}

func (that *moving) Turn() entity.Mark {
	return that.state.Turn
}

func (that *moving) Phase() entity.Phase {
	return that.state.Phase
}

func (that *moving) Result() entity.Result {
	return that.state.Result
}

func (that *moving) LastMove() *entity.Move {
	return that.state.LastMove
}

func (that *moving) Occupied() int {
	return that.state.Board.Occupied()
}

func (that *moving) Validate(mark entity.Mark, action entity.Action) error {
	if err := checkTurn(that.state.Result, that.state.Turn, mark); err != nil {
		return err
	}

	switch action.Type {
	case entity.ActionPlace:
		if that.state.Phase != entity.PhasePlacement {
			return apperror.ErrWrongPhase
		}

		if !inRange(action.Cell) {
			return apperror.ErrInvalidCell
		}

		if that.state.Board[action.Cell] != entity.MarkEmpty {
			return apperror.ErrCellOccupied
		}

		return nil
	case entity.ActionMove:
		if that.state.Phase != entity.PhaseMovement {
			return apperror.ErrWrongPhase
		}

		return that.validateStep(mark, action.From, action.To)
	}

	return apperror.ErrUnsupportedAction
}

func (that *moving) validateStep(mark entity.Mark, from, to int) error {
	if !inRange(from) || !inRange(to) {
		return apperror.ErrInvalidCell
	}

	if that.state.Board[from] != mark {
		return apperror.ErrNotYourPiece
	}

	if that.state.Board[to] != entity.MarkEmpty {
		return apperror.ErrCellOccupied
	}

	if !adjacent(from, to) {
		return apperror.ErrNotAdjacent
	}

	return nil
}

// adjacent reports a Manhattan distance of exactly one on the 3x3 grid.
func adjacent(from, to int) bool {
	rowDiff := from/3 - to/3
	colDiff := from%3 - to%3

	return abs(rowDiff)+abs(colDiff) == 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

func (that *moving) Apply(mark entity.Mark, action entity.Action) (entity.Move, error) {
	if err := that.Validate(mark, action); err != nil {
		return entity.Move{}, err
	}

	var move entity.Move

	if action.Type == entity.ActionPlace {
		that.state.Board[action.Cell] = mark
		that.state.Placed[mark]++
		move = entity.Move{Action: entity.Place(action.Cell), Mark: mark}

		if that.state.Placed[entity.MarkX] == piecesPerPlayer && that.state.Placed[entity.MarkO] == piecesPerPlayer {
			that.state.Phase = entity.PhaseMovement
		}
	} else {
		that.state.Board[action.From] = entity.MarkEmpty
		that.state.Board[action.To] = mark
		move = entity.Move{Action: entity.MovePiece(action.From, action.To), Mark: mark}
	}

	that.state.LastMove = &move

	if that.CheckResult() == entity.ResultPending {
		that.passTurn(mark)
	}

	return move, nil
}

// passTurn hands the turn to the opponent unless the opponent is boxed in
// during movement, in which case the mover plays again.
func (that *moving) passTurn(mover entity.Mark) {
	next := mover.Opponent()
	if that.state.Phase == entity.PhaseMovement && len(that.steps(next)) == 0 {
		next = mover
	}

	that.state.Turn = next
}

func (that *moving) CheckResult() entity.Result {
	if that.state.Result.IsTerminal() || that.state.LastMove == nil {
		return that.state.Result
	}

	if that.state.Phase != entity.PhaseMovement || that.state.LastMove.Type != entity.ActionMove {
		return that.state.Result
	}

	mover := that.state.LastMove.Mark
	if line, ok := DetectLine(&that.state.Board, mover, StandardLines, nil); ok {
		that.state.Result = entity.WinnerOf(mover)
		that.state.WinLine = &line
	}

	return that.state.Result
}

func (that *moving) steps(mark entity.Mark) []step {
	var steps []step

	for from, cell := range that.state.Board {
		if cell != mark {
			continue
		}

		for to := range that.state.Board {
			if that.validateStep(mark, from, to) == nil {
				steps = append(steps, step{from: from, to: to})
			}
		}
	}

	return steps
}

func (that *moving) SuggestMove(_ entity.Difficulty) (entity.Action, error) {
	if that.state.Result.IsTerminal() {
		return entity.Action{}, apperror.ErrGameFinished
	}

	if that.state.Phase == entity.PhasePlacement {
		empty := that.state.Board.EmptyCells()
		if len(empty) == 0 {
			return entity.Action{}, apperror.ErrNoAvailableMoves
		}

		return entity.Place(pick(that.rnd, empty)), nil
	}

	me := that.state.Turn

	steps := that.steps(me)
	if len(steps) == 0 {
		return entity.Action{}, apperror.ErrNoAvailableMoves
	}

	for _, candidate := range steps {
		board := that.state.Board
		board[candidate.from] = entity.MarkEmpty
		board[candidate.to] = me

		if _, ok := DetectLine(&board, me, StandardLines, nil); ok {
			return entity.MovePiece(candidate.from, candidate.to), nil
		}
	}

	chosen := steps[that.rnd.Intn(len(steps))]

	return entity.MovePiece(chosen.from, chosen.to), nil
}

func (that *moving) MarshalState() (json.RawMessage, error) {
	state, err := json.Marshal(that.state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal moving state: %w", err)
	}

	return state, nil
}

func (that *moving) RestoreState(state json.RawMessage) error {
	var restored movingState
	if err := restore(state, &restored); err != nil {
		return err
	}

	if restored.Placed == nil {
		restored.Placed = map[entity.Mark]int{}
	}

	that.state = restored

	return nil
}
