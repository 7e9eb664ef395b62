package service

import (
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
	"github.com/rocketscienceinc/tictactoe-variants/internal/rules"
)

// Bot plays one seat using the game's heuristic opponent.
type Bot struct {
	logger     *slog.Logger
	mark       entity.Mark
	difficulty entity.Difficulty
}

func NewBot(logger *slog.Logger, mark entity.Mark, difficulty entity.Difficulty) *Bot {
	return &Bot{
		logger:     logger,
		mark:       mark,
		difficulty: difficulty,
	}
}

func (that *Bot) Mark() entity.Mark {
	return that.mark
}

// Play picks and applies the bot's next action.
func (that *Bot) Play(game rules.Game) (entity.Move, error) {
	log := that.logger.With("method", "Play", "kind", game.Kind())

	if game.Turn() != that.mark {
		return entity.Move{}, apperror.ErrNotYourTurn
	}

	action, err := game.SuggestMove(that.difficulty)
	if err != nil {
		return entity.Move{}, fmt.Errorf("failed to suggest move: %w", err)
	}

	move, err := game.Apply(that.mark, action)
	if err != nil {
		return entity.Move{}, fmt.Errorf("failed to apply bot move: %w", err)
	}

	log.Debug("bot played", "action", action.Type, "cell", action.Cell)

	return move, nil
}
