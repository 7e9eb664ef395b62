package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

func updatesChannel(code string) string {
	return "session:" + code + ":updates"
}

// Broker fans session updates out to every seat over Redis pub/sub.
type Broker struct {
	logger *slog.Logger
	client *redis.Client
}

func NewBroker(logger *slog.Logger, client *redis.Client) *Broker {
	return &Broker{
		logger: logger,
		client: client,
	}
}

func (that *Broker) Publish(ctx context.Context, code string, update *entity.SessionUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("could not marshal update: %w", err)
	}

	if err = that.client.Publish(ctx, updatesChannel(code), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish update: %w", err)
	}

	return nil
}

// Subscribe delivers every update of the session to onUpdate until ctx is
// done or the returned function is called. The subscription is live when
// Subscribe returns.
func (that *Broker) Subscribe(
	ctx context.Context, code string, onUpdate func(*entity.SessionUpdate),
) (func() error, error) {
	log := that.logger.With("method", "Subscribe", "session", code)

	sub := that.client.Subscribe(ctx, updatesChannel(code))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	messages := sub.Channel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case message, ok := <-messages:
				if !ok {
					return
				}

				var update entity.SessionUpdate
				if err := json.Unmarshal([]byte(message.Payload), &update); err != nil {
					log.Warn("dropping malformed update", "error", err)
					continue
				}

				onUpdate(&update)
			}
		}
	}()

	return sub.Close, nil
}
