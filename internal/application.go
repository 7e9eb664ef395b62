package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-variants/internal/config"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
	"github.com/rocketscienceinc/tictactoe-variants/internal/repository"
	"github.com/rocketscienceinc/tictactoe-variants/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-variants/internal/scheduler"
	"github.com/rocketscienceinc/tictactoe-variants/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-variants/transport/rest"
	"github.com/rocketscienceinc/tictactoe-variants/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs both servers until a signal arrives or one of them fails.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	difficulty, err := entity.ParseDifficulty(conf.Game.Difficulty)
	if err != nil {
		return fmt.Errorf("invalid game difficulty: %w", err)
	}

	redisAddr := conf.Redis.GetRedisAddr()
	if redisAddr == "" {
		return ErrAddrNotFound
	}

	redisClient, err := storage.NewRedis(ctx, redisAddr)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sessionRepo := repository.NewSessionRepository(redisClient, conf.Game.SessionTTL)
	broker := repository.NewBroker(logger, redisClient)
	sessionManager := usecase.NewSessionManager(logger, sessionRepo, broker)

	restServer := rest.New(logger, sessionManager)
	wsServer := websocket.New(logger, sessionManager, scheduler.New(nil), websocket.Config{
		AIDelay:       conf.Game.AIDelay,
		FlipBackDelay: conf.Game.FlipBackDelay,
		Difficulty:    difficulty,
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)

		if err := restServer.Start(groupCtx, conf.HTTPPort); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)

		if err := wsServer.Start(groupCtx, conf.SocketPort); err != nil {
			return fmt.Errorf("WebSocket server error: %w", err)
		}

		return nil
	})

	if err = group.Wait(); err != nil {
		return err //nolint: wrapcheck // already wrapped per server
	}

	log.Info("Application context canceled, shutting down")

	return nil
}
