package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
)

// Kind is the closed set of playable games.
type Kind string

const (
	KindClassic  Kind = "classic"
	KindMisere   Kind = "misere"
	KindCircular Kind = "circular"
	KindColor    Kind = "color"
	KindMoving   Kind = "moving"
	KindUltimate Kind = "ultimate"
	KindMemory   Kind = "memory"
	KindRace     Kind = "snakes"
)

// Kinds returns every playable kind in menu order.
func Kinds() []Kind {
	return []Kind{KindClassic, KindMisere, KindCircular, KindMoving, KindColor, KindRace, KindMemory, KindUltimate}
}

func ParseKind(value string) (Kind, error) {
	for _, kind := range Kinds() {
		if string(kind) == value {
			return kind, nil
		}
	}

	return "", fmt.Errorf("%w: %q", apperror.ErrUnknownGameKind, value)
}

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeAI     Mode = "ai"
	ModeOnline Mode = "online"
)

func ParseMode(value string) (Mode, error) {
	switch mode := Mode(value); mode {
	case ModeLocal, ModeAI, ModeOnline:
		return mode, nil
	}

	return "", fmt.Errorf("%w: %q", apperror.ErrUnknownMode, value)
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty falls back to medium for an empty value.
func ParseDifficulty(value string) (Difficulty, error) {
	switch difficulty := Difficulty(value); difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return difficulty, nil
	case "":
		return DifficultyMedium, nil
	}

	return "", fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, value)
}

// Phase gates which action types a game accepts.
type Phase string

const (
	PhasePlay      Phase = "play"
	PhasePlacement Phase = "placement"
	PhaseMovement  Phase = "movement"
	PhaseSelecting Phase = "selecting"
	PhaseResolving Phase = "resolving"
)

// Result is pending until the game reaches a terminal state.
type Result string

const (
	ResultPending Result = "pending"
	ResultX       Result = "X"
	ResultO       Result = "O"
	ResultDraw    Result = "draw"
)

func WinnerOf(mark Mark) Result {
	if mark == MarkO {
		return ResultO
	}

	return ResultX
}

func (that Result) IsTerminal() bool {
	return that != ResultPending && that != ""
}
