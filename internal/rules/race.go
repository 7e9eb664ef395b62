package rules

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

const (
	raceStart  = 1
	raceFinish = 36
	dieFaces   = 6
)

var (
	snakes  = map[int]int{31: 14, 21: 9, 16: 4}
	ladders = map[int]int{6: 17, 13: 28, 24: 35}
)

// Advance resolves a roll: overshooting the finish bounces back by the excess,
// then a snake head or ladder foot redirects once.
func Advance(from, dice int) int {
	target := from + dice
	if target > raceFinish {
		target = raceFinish - (target - raceFinish)
	}

	if end, ok := snakes[target]; ok {
		return end
	}

	if end, ok := ladders[target]; ok {
		return end
	}

	return target
}

type raceState struct {
	Positions map[entity.Mark]int `json:"players"`
	Turn      entity.Mark         `json:"turn"`
	Result    entity.Result       `json:"result"`
	LastMove  *entity.Move        `json:"last_move,omitempty"`
}

type race struct {
	rnd   *rand.Rand
	state raceState
}

func newRace(rnd *rand.Rand) *race {
	return &race{
		rnd: rnd,
		state: raceState{
			Positions: map[entity.Mark]int{entity.MarkX: raceStart, entity.MarkO: raceStart},
			Turn:      entity.MarkX,
			Result:    entity.ResultPending,
		},
	}
}

func (that *race) Kind() entity.Kind {
	return entity.KindRace
}

func (that *race) Turn() entity.Mark {
	return that.state.Turn
}

func (that *race) Phase() entity.Phase {
	return entity.PhasePlay
}

func (that *race) Result() entity.Result {
	return that.state.Result
}

func (that *race) LastMove() *entity.Move {
	return that.state.LastMove
}

func (that *race) Position(mark entity.Mark) int {
	return that.state.Positions[mark]
}

// Occupied counts tokens on the track, which never changes.
func (that *race) Occupied() int {
	return len(that.state.Positions)
}

func (that *race) Validate(mark entity.Mark, action entity.Action) error {
	if err := checkTurn(that.state.Result, that.state.Turn, mark); err != nil {
		return err
	}

	if action.Type != entity.ActionRoll {
		return apperror.ErrUnsupportedAction
	}

	return nil
}

func (that *race) Apply(mark entity.Mark, action entity.Action) (entity.Move, error) {
	if err := that.Validate(mark, action); err != nil {
		return entity.Move{}, err
	}

	dice := that.rnd.Intn(dieFaces) + 1
	from := that.state.Positions[mark]
	to := Advance(from, dice)
	that.state.Positions[mark] = to

	move := entity.Move{
		Action: entity.Action{Type: entity.ActionRoll, From: from, To: to},
		Mark:   mark,
		Dice:   dice,
	}
	that.state.LastMove = &move

	if that.CheckResult() == entity.ResultPending {
		that.state.Turn = mark.Opponent()
	}

	return move, nil
}

func (that *race) CheckResult() entity.Result {
	if that.state.Result.IsTerminal() {
		return that.state.Result
	}

	for _, mark := range []entity.Mark{entity.MarkX, entity.MarkO} {
		if that.state.Positions[mark] == raceFinish {
			that.state.Result = entity.WinnerOf(mark)
		}
	}

	return that.state.Result
}

// SuggestMove always rolls: the die decides everything.
func (that *race) SuggestMove(_ entity.Difficulty) (entity.Action, error) {
	if that.state.Result.IsTerminal() {
		return entity.Action{}, apperror.ErrGameFinished
	}

	return entity.Roll(), nil
}

func (that *race) MarshalState() (json.RawMessage, error) {
	state, err := json.Marshal(that.state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal race state: %w", err)
	}

	return state, nil
}

func (that *race) RestoreState(state json.RawMessage) error {
	var restored raceState
	if err := restore(state, &restored); err != nil {
		return err
	}

	if restored.Positions == nil {
		restored.Positions = map[entity.Mark]int{}
	}

	that.state = restored

	return nil
}
