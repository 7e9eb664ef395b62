// Package rules holds the rules engines of every playable game behind one
// interface: validation, turn advance, terminal detection and the heuristic
// opponent.
package rules

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

type Game interface {
	Kind() entity.Kind
	// Turn is the mark entitled to act next.
	Turn() entity.Mark
	Phase() entity.Phase
	Result() entity.Result
	LastMove() *entity.Move

	Validate(mark entity.Mark, action entity.Action) error
	// Apply validates the action, mutates the state and evaluates the result.
	Apply(mark entity.Mark, action entity.Action) (entity.Move, error)
	CheckResult() entity.Result
	SuggestMove(difficulty entity.Difficulty) (entity.Action, error)

	// Occupied counts non-empty cells (face-up or owned cards in memory).
	Occupied() int

	MarshalState() (json.RawMessage, error)
	// RestoreState replaces the whole state with a previously marshaled one.
	RestoreState(state json.RawMessage) error
}

// Resolver is implemented by games whose actions leave a pending state that
// settles after a delay.
type Resolver interface {
	NeedsResolve() bool
	Resolve() (entity.Move, error)
}

type options struct {
	rnd *rand.Rand
}

type Option func(*options)

// WithRand sets the random source for shuffles, dice and heuristics.
func WithRand(rnd *rand.Rand) Option {
	return func(o *options) {
		o.rnd = rnd
	}
}

func New(kind entity.Kind, opts ...Option) (Game, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.rnd == nil {
		o.rnd = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint: gosec // it's ok
	}

	switch kind {
	case entity.KindClassic, entity.KindMisere, entity.KindCircular, entity.KindColor:
		return newPlacement(kind, o.rnd), nil
	case entity.KindMoving:
		return newMoving(o.rnd), nil
	case entity.KindUltimate:
		return newUltimate(o.rnd), nil
	case entity.KindMemory:
		return newMemory(o.rnd), nil
	case entity.KindRace:
		return newRace(o.rnd), nil
	}

	return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownGameKind, kind)
}

// checkTurn runs the checks shared by every game.
func checkTurn(result entity.Result, turn, mark entity.Mark) error {
	if result.IsTerminal() {
		return apperror.ErrGameFinished
	}

	if mark != turn {
		return apperror.ErrNotYourTurn
	}

	return nil
}

func restore(state json.RawMessage, into any) error {
	if err := json.Unmarshal(state, into); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return nil
}
