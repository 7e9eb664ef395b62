package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
	"github.com/rocketscienceinc/tictactoe-variants/internal/rules"
	"github.com/rocketscienceinc/tictactoe-variants/internal/scheduler"
)

type publisher interface {
	Publish(ctx context.Context, code string, snapshot *entity.Snapshot) error
}

type ControllerConfig struct {
	Mode       entity.Mode
	Difficulty entity.Difficulty
	// Seat is the local seat: the human seat against the bot, the own seat online.
	Seat          entity.Seat
	PlayerID      string
	SessionCode   string
	AIDelay       time.Duration
	FlipBackDelay time.Duration
}

// Controller owns one running game. Every mutation (player action, bot move,
// flip-back, remote snapshot) happens under its lock, one at a time.
type Controller struct {
	logger    *slog.Logger
	game      rules.Game
	scheduler *scheduler.Scheduler
	publisher publisher
	conf      ControllerConfig
	bot       *Bot

	mu         sync.Mutex
	turnHolder entity.Seat
	pending    *scheduler.Task
	listeners  []func(*entity.Snapshot)
	stopped    bool
}

// NewController builds a controller around game. publisher may be nil
// outside online mode.
func NewController(
	logger *slog.Logger, game rules.Game, sched *scheduler.Scheduler, conf ControllerConfig, pub publisher,
) *Controller {
	if conf.Seat == "" {
		conf.Seat = entity.SeatFirst
	}

	controller := &Controller{
		logger:     logger.With("component", "controller", "kind", game.Kind(), "mode", conf.Mode),
		game:       game,
		scheduler:  sched,
		publisher:  pub,
		conf:       conf,
		turnHolder: entity.SeatOf(game.Turn()),
	}

	if conf.Mode == entity.ModeAI {
		controller.bot = NewBot(logger, conf.Seat.Mark().Opponent(), conf.Difficulty)
	}

	return controller
}

// OnChange registers fn to receive every new snapshot.
func (that *Controller) OnChange(fn func(*entity.Snapshot)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.listeners = append(that.listeners, fn)
}

// Start schedules the bot when it holds the opening move.
func (that *Controller) Start(ctx context.Context) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.pending == nil {
		that.scheduleFollowUp(ctx)
	}
}

func (that *Controller) Kind() entity.Kind {
	return that.game.Kind()
}

func (that *Controller) SessionCode() string {
	return that.conf.SessionCode
}

// Stop retires the controller: outstanding follow-ups and remote snapshots
// no longer change the game or reach the listeners.
func (that *Controller) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.stopped = true
	that.listeners = nil
}

// Act applies an action from the local player.
func (that *Controller) Act(ctx context.Context, action entity.Action) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	log := that.logger.With("method", "Act")

	if that.stopped {
		return apperror.ErrGameIsNotStarted
	}

	if that.pending != nil {
		return apperror.ErrProcessing
	}

	mark, err := that.actingMark()
	if err != nil {
		return err
	}

	move, err := that.game.Apply(mark, action)
	if err != nil {
		log.Debug("action rejected", "action", action.Type, "error", err)
		return fmt.Errorf("failed to apply action: %w", err)
	}

	that.afterChange(ctx, move)

	return nil
}

// actingMark resolves who the local player acts as. Online, ownership is the
// seat carried by the last snapshot compared with the local seat.
func (that *Controller) actingMark() (entity.Mark, error) {
	switch that.conf.Mode {
	case entity.ModeAI:
		human := that.conf.Seat.Mark()
		if that.game.Turn() != human {
			return "", apperror.ErrNotYourTurn
		}

		return human, nil
	case entity.ModeOnline:
		if that.turnHolder != that.conf.Seat {
			return "", apperror.ErrNotYourTurn
		}

		return that.conf.Seat.Mark(), nil
	}

	return that.game.Turn(), nil
}

// ApplyRemote replaces the local state with a snapshot pushed by the other
// seat. Own echoes are ignored; applying the same snapshot again changes nothing.
func (that *Controller) ApplyRemote(ctx context.Context, snapshot *entity.Snapshot) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if snapshot == nil || (snapshot.Author != "" && snapshot.Author == that.conf.PlayerID) {
		return nil
	}

	return that.load(ctx, snapshot)
}

// Load replaces the local state with the session's stored snapshot, whoever
// wrote it. A seat taken over by a new connection catches up this way.
func (that *Controller) Load(ctx context.Context, snapshot *entity.Snapshot) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if snapshot == nil {
		return nil
	}

	return that.load(ctx, snapshot)
}

func (that *Controller) load(ctx context.Context, snapshot *entity.Snapshot) error {
	if that.stopped {
		return nil
	}

	if snapshot.Kind != that.game.Kind() {
		return fmt.Errorf("%w: %s", apperror.ErrGameKindMismatch, snapshot.Kind)
	}

	if err := that.game.RestoreState(snapshot.State); err != nil {
		return fmt.Errorf("failed to restore remote state: %w", err)
	}

	that.turnHolder = snapshot.CurrentTurn
	if that.turnHolder == "" {
		that.turnHolder = entity.SeatOf(that.game.Turn())
	}

	if current, err := that.snapshot(); err == nil {
		that.notify(current)
	}

	if that.pending == nil {
		that.scheduleFollowUp(ctx)
	}

	return nil
}

func (that *Controller) Snapshot() (*entity.Snapshot, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshot()
}

// Busy reports whether a bot move or flip-back is outstanding.
func (that *Controller) Busy() bool {
	return that.pendingTask() != nil
}

// Await blocks until no follow-up is scheduled, including the follow-ups
// that scheduled tasks queue themselves.
func (that *Controller) Await(ctx context.Context) error {
	for {
		task := that.pendingTask()
		if task == nil {
			return nil
		}

		if err := task.Wait(ctx); err != nil {
			return err
		}
	}
}

func (that *Controller) pendingTask() *scheduler.Task {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.pending
}

func (that *Controller) snapshot() (*entity.Snapshot, error) {
	state, err := that.game.MarshalState()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}

	return &entity.Snapshot{
		Kind:        that.game.Kind(),
		State:       state,
		CurrentTurn: that.turnHolder,
		LastMove:    that.game.LastMove(),
		Result:      that.game.Result(),
		Author:      that.conf.PlayerID,
	}, nil
}

func (that *Controller) afterChange(ctx context.Context, move entity.Move) {
	log := that.logger.With("method", "afterChange")

	that.turnHolder = entity.SeatOf(that.game.Turn())

	snapshot, err := that.snapshot()
	if err != nil {
		log.Error("failed to snapshot game", "error", err)
		return
	}

	if that.conf.Mode == entity.ModeOnline && that.publisher != nil {
		if err = that.publisher.Publish(ctx, that.conf.SessionCode, snapshot); err != nil {
			log.Error("failed to publish snapshot", "session", that.conf.SessionCode, "error", err)
		}
	}

	if snapshot.Result.IsTerminal() {
		log.Info("game finished", "result", snapshot.Result, "last", move.Mark)
	}

	that.notify(snapshot)
	that.scheduleFollowUp(ctx)
}

// scheduleFollowUp queues the flip-back of a face-up pair, or the bot's reply.
// Online, only the seat that flipped the pair settles it.
func (that *Controller) scheduleFollowUp(ctx context.Context) {
	that.pending = nil

	if that.stopped || that.game.Result().IsTerminal() {
		return
	}

	background := context.WithoutCancel(ctx)

	if resolver, ok := that.game.(rules.Resolver); ok && resolver.NeedsResolve() {
		if that.conf.Mode == entity.ModeOnline && that.turnHolder != that.conf.Seat {
			return
		}

		that.pending = that.scheduler.After(that.conf.FlipBackDelay, func() {
			that.resolve(background, resolver)
		})

		return
	}

	if that.bot != nil && that.game.Turn() == that.bot.Mark() {
		that.pending = that.scheduler.After(that.conf.AIDelay, func() {
			that.playBot(background)
		})
	}
}

func (that *Controller) resolve(ctx context.Context, resolver rules.Resolver) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.pending = nil

	if that.stopped {
		return
	}

	move, err := resolver.Resolve()
	if err != nil {
		that.logger.Warn("failed to resolve pair", "error", err)
		return
	}

	that.afterChange(ctx, move)
}

func (that *Controller) playBot(ctx context.Context) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.pending = nil

	if that.stopped {
		return
	}

	move, err := that.bot.Play(that.game)
	if err != nil {
		that.logger.Error("bot failed to play", "error", err)
		return
	}

	that.afterChange(ctx, move)
}

func (that *Controller) notify(snapshot *entity.Snapshot) {
	for _, listener := range that.listeners {
		listener(snapshot)
	}
}
