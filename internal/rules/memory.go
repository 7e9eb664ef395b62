package rules

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

var cardSymbols = []string{"★", "♡", "♢", "♤", "♧", "♥", "♦", "♣"}

const cardsPerTurn = 2

type Card struct {
	Symbol  string      `json:"symbol"`
	Flipped bool        `json:"is_flipped"`
	Owner   entity.Mark `json:"owner,omitempty"`
}

func (that Card) hidden() bool {
	return !that.Flipped && that.Owner == entity.MarkEmpty
}

type memoryState struct {
	Cards    []Card              `json:"cards"`
	Flipped  []int               `json:"flipped"`
	Scores   map[entity.Mark]int `json:"scores"`
	Turn     entity.Mark         `json:"turn"`
	Phase    entity.Phase        `json:"phase"`
	Result   entity.Result       `json:"result"`
	LastMove *entity.Move        `json:"last_move,omitempty"`
}

// memory is a matching duel over a shuffled deck of symbol pairs. A matched
// pair scores and keeps the turn; a mismatch is turned face down again and
// the turn passes.
type memory struct {
	rnd   *rand.Rand
	state memoryState
}

func newMemory(rnd *rand.Rand) *memory {
	deck := make([]string, 0, len(cardSymbols)*2)
	deck = append(deck, cardSymbols...)
	deck = append(deck, cardSymbols...)

	rnd.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	cards := make([]Card, len(deck))
	for i, symbol := range deck {
		cards[i] = Card{Symbol: symbol}
	}

	return &memory{
		rnd: rnd,
		state: memoryState{
			Cards:  cards,
			Scores: map[entity.Mark]int{entity.MarkX: 0, entity.MarkO: 0},
			Turn:   entity.MarkX,
			Phase:  entity.PhaseSelecting,
			Result: entity.ResultPending,
		},
	}
}

func (that *memory) Kind() entity.Kind {
	return entity.KindMemory
}

func (that *memory) Turn() entity.Mark {
	return that.state.Turn
}

func (that *memory) Phase() entity.Phase {
	return that.state.Phase
}

func (that *memory) Result() entity.Result {
	return that.state.Result
}

func (that *memory) LastMove() *entity.Move {
	return that.state.LastMove
}

func (that *memory) Score(mark entity.Mark) int {
	return that.state.Scores[mark]
}

func (that *memory) Cards() []Card {
	return append([]Card(nil), that.state.Cards...)
}

func (that *memory) Occupied() int {
	total := 0
	for _, card := range that.state.Cards {
		if !card.hidden() {
			total++
		}
	}

	return total
}

func (that *memory) Validate(mark entity.Mark, action entity.Action) error {
	if err := checkTurn(that.state.Result, that.state.Turn, mark); err != nil {
		return err
	}

	if action.Type != entity.ActionFlip {
		return apperror.ErrUnsupportedAction
	}

	if that.state.Phase == entity.PhaseResolving {
		return apperror.ErrProcessing
	}

	if action.Cell < 0 || action.Cell >= len(that.state.Cards) {
		return apperror.ErrInvalidCell
	}

	if !that.state.Cards[action.Cell].hidden() {
		return apperror.ErrCardRevealed
	}

	return nil
}

func (that *memory) Apply(mark entity.Mark, action entity.Action) (entity.Move, error) {
	if err := that.Validate(mark, action); err != nil {
		return entity.Move{}, err
	}

	that.state.Cards[action.Cell].Flipped = true
	that.state.Flipped = append(that.state.Flipped, action.Cell)

	if len(that.state.Flipped) == cardsPerTurn {
		that.state.Phase = entity.PhaseResolving
	}

	move := entity.Move{
		Action:  entity.Flip(action.Cell),
		Mark:    mark,
		Flipped: append([]int(nil), that.state.Flipped...),
	}
	that.state.LastMove = &move

	return move, nil
}

func (that *memory) NeedsResolve() bool {
	return that.state.Phase == entity.PhaseResolving
}

// Resolve settles the face-up pair.
func (that *memory) Resolve() (entity.Move, error) {
	if !that.NeedsResolve() {
		return entity.Move{}, apperror.ErrNothingToResolve
	}

	first, second := that.state.Flipped[0], that.state.Flipped[1]
	mark := that.state.Turn
	matched := that.state.Cards[first].Symbol == that.state.Cards[second].Symbol

	if matched {
		that.state.Cards[first].Owner = mark
		that.state.Cards[second].Owner = mark
		that.state.Scores[mark]++
	} else {
		that.state.Cards[first].Flipped = false
		that.state.Cards[second].Flipped = false
	}

	move := entity.Move{
		Action:  entity.Flip(second),
		Mark:    mark,
		Flipped: []int{first, second},
		Matched: matched,
	}
	that.state.LastMove = &move
	that.state.Flipped = nil
	that.state.Phase = entity.PhaseSelecting

	if that.CheckResult() == entity.ResultPending && !matched {
		that.state.Turn = mark.Opponent()
	}

	return move, nil
}

// CheckResult ends the game once every pair is owned.
func (that *memory) CheckResult() entity.Result {
	if that.state.Result.IsTerminal() {
		return that.state.Result
	}

	x, o := that.state.Scores[entity.MarkX], that.state.Scores[entity.MarkO]
	if x+o < len(that.state.Cards)/2 {
		return that.state.Result
	}

	switch {
	case x > o:
		that.state.Result = entity.ResultX
	case o > x:
		that.state.Result = entity.ResultO
	default:
		that.state.Result = entity.ResultDraw
	}

	return that.state.Result
}

// SuggestMove picks a random hidden card; no memory of seen symbols is kept.
func (that *memory) SuggestMove(_ entity.Difficulty) (entity.Action, error) {
	if that.state.Result.IsTerminal() {
		return entity.Action{}, apperror.ErrGameFinished
	}

	if that.state.Phase == entity.PhaseResolving {
		return entity.Action{}, apperror.ErrProcessing
	}

	hidden := make([]int, 0, len(that.state.Cards))
	for i, card := range that.state.Cards {
		if card.hidden() {
			hidden = append(hidden, i)
		}
	}

	if len(hidden) == 0 {
		return entity.Action{}, apperror.ErrNoAvailableMoves
	}

	return entity.Flip(pick(that.rnd, hidden)), nil
}

func (that *memory) MarshalState() (json.RawMessage, error) {
	state, err := json.Marshal(that.state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal memory state: %w", err)
	}

	return state, nil
}

func (that *memory) RestoreState(state json.RawMessage) error {
	var restored memoryState
	if err := restore(state, &restored); err != nil {
		return err
	}

	if restored.Scores == nil {
		restored.Scores = map[entity.Mark]int{}
	}

	that.state = restored

	return nil
}
