package websocket

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
	"github.com/rocketscienceinc/tictactoe-variants/internal/rules"
	"github.com/rocketscienceinc/tictactoe-variants/internal/service"
)

// handleNewGame starts a game played on this device, alone or against the bot.
func (that *Server) handleNewGame(ctx context.Context, message *Message, conn *connection) error {
	var request newGameRequest
	if err := decodePayload(message, &request); err != nil {
		return err
	}

	kind, err := entity.ParseKind(request.Kind)
	if err != nil {
		return err //nolint: wrapcheck // sent to the client as is
	}

	if request.Mode == "" {
		request.Mode = string(entity.ModeLocal)
	}

	mode, err := entity.ParseMode(request.Mode)
	if err != nil {
		return err //nolint: wrapcheck // sent to the client as is
	}

	if mode == entity.ModeOnline {
		return fmt.Errorf("%w: online games start with %s", apperror.ErrUnknownMode, actionSessionNew)
	}

	difficulty := that.conf.Difficulty
	if request.Difficulty != "" {
		if difficulty, err = entity.ParseDifficulty(request.Difficulty); err != nil {
			return err //nolint: wrapcheck // sent to the client as is
		}
	}

	game, err := rules.New(kind)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	controller := service.NewController(that.logger, game, that.scheduler, service.ControllerConfig{
		Mode:          mode,
		Difficulty:    difficulty,
		Seat:          entity.SeatFirst,
		AIDelay:       that.conf.AIDelay,
		FlipBackDelay: that.conf.FlipBackDelay,
	}, nil)

	that.play(ctx, conn, controller, nil)

	return nil
}

func (that *Server) handleNewSession(ctx context.Context, message *Message, conn *connection) error {
	var request newSessionRequest
	if err := decodePayload(message, &request); err != nil {
		return err
	}

	kind, err := entity.ParseKind(request.Kind)
	if err != nil {
		return err //nolint: wrapcheck // sent to the client as is
	}

	seating, err := that.manager.CreateSession(ctx, kind, request.Name)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return that.takeSeat(ctx, conn, seating)
}

func (that *Server) handleJoinSession(ctx context.Context, message *Message, conn *connection) error {
	var request joinSessionRequest
	if err := decodePayload(message, &request); err != nil {
		return err
	}

	seating, err := that.manager.JoinSession(ctx, request.Code, request.Name)
	if err != nil {
		return fmt.Errorf("failed to join session: %w", err)
	}

	return that.takeSeat(ctx, conn, seating)
}

// handleAttachSession puts this connection back on a seat handed out earlier,
// over REST or by a socket that has since dropped.
func (that *Server) handleAttachSession(ctx context.Context, message *Message, conn *connection) error {
	var request attachSessionRequest
	if err := decodePayload(message, &request); err != nil {
		return err
	}

	playerID, err := uuid.Parse(request.PlayerID)
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidPlayerID, err)
	}

	session, err := that.manager.GetSession(ctx, request.Code)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	player, ok := session.PlayerByID(playerID.String())
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrPlayerNotInSession, session.Code)
	}

	return that.takeSeat(ctx, conn, &entity.Seating{
		SessionCode: session.Code,
		PlayerID:    player.ID,
		Seat:        player.Seat,
		Session:     session,
	})
}

// takeSeat builds the online controller for seating and follows the session.
// The subscription is live before the stored snapshot is read, so no move
// published in between is missed.
func (that *Server) takeSeat(ctx context.Context, conn *connection, seating *entity.Seating) error {
	log := that.logger.With("method", "takeSeat", "session", seating.SessionCode)

	game, err := rules.New(seating.Session.Kind)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	controller := service.NewController(that.logger, game, that.scheduler, service.ControllerConfig{
		Mode:          entity.ModeOnline,
		Seat:          seating.Seat,
		PlayerID:      seating.PlayerID,
		SessionCode:   seating.SessionCode,
		AIDelay:       that.conf.AIDelay,
		FlipBackDelay: that.conf.FlipBackDelay,
	}, that.manager)

	feed := newSnapshotFeed(func(snapshot *entity.Snapshot) {
		if err := controller.ApplyRemote(ctx, snapshot); err != nil {
			log.Warn("failed to apply remote snapshot", "error", err)
		}
	})

	unsubscribe, err := that.manager.Subscribe(ctx, seating.SessionCode, func(update *entity.SessionUpdate) {
		if update.Session != nil {
			conn.sendMessage(actionSessionUpdate, update.Session)
		}

		if update.Snapshot != nil {
			feed.push(update.Snapshot)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to follow session: %w", err)
	}

	feed.forget()

	latest, err := that.manager.GetSession(ctx, seating.SessionCode)
	if err != nil {
		_ = unsubscribe()
		return fmt.Errorf("failed to get session: %w", err)
	}

	if err = controller.Load(ctx, latest.Snapshot); err != nil {
		_ = unsubscribe()
		return fmt.Errorf("failed to restore session state: %w", err)
	}

	seating.Session = latest

	conn.sendMessage(actionSessionSeated, seating)
	that.play(ctx, conn, controller, unsubscribe)
	feed.release()

	return nil
}

// play makes controller the connection's game and pushes every state it
// reaches while it stays the connection's game.
func (that *Server) play(ctx context.Context, conn *connection, controller *service.Controller, unsubscribe func() error) {
	generation := conn.attach(controller, unsubscribe)

	controller.OnChange(func(snapshot *entity.Snapshot) {
		if conn.isCurrent(generation) {
			conn.sendMessage(actionGameState, snapshot)
		}
	})

	if snapshot, err := controller.Snapshot(); err == nil {
		conn.sendMessage(actionGameState, snapshot)
	}

	controller.Start(ctx)
}

func (that *Server) handleAct(ctx context.Context, message *Message, conn *connection) error {
	controller := conn.current()
	if controller == nil {
		return apperror.ErrGameIsNotStarted
	}

	var action entity.Action
	if err := decodePayload(message, &action); err != nil {
		return err
	}

	if err := controller.Act(ctx, action); err != nil {
		return err //nolint: wrapcheck // sent to the client as is
	}

	return nil
}

func (that *Server) handleState(_ context.Context, _ *Message, conn *connection) error {
	controller := conn.current()
	if controller == nil {
		return apperror.ErrGameIsNotStarted
	}

	snapshot, err := controller.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to get state: %w", err)
	}

	conn.sendMessage(actionGameState, snapshot)

	return nil
}
