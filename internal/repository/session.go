package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

const maxModifyAttempts = 5

func sessionKey(code string) string {
	return "session:" + code
}

// SessionRepository keeps session records as JSON strings with a TTL.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// Create stores a new session, refusing to overwrite an existing code.
func (that *SessionRepository) Create(ctx context.Context, session *entity.Session) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	created, err := that.client.SetNX(ctx, sessionKey(session.Code), sessionJSON, that.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	if !created {
		return fmt.Errorf("%w: %s", apperror.ErrSessionExists, session.Code)
	}

	return nil
}

func (that *SessionRepository) GetByCode(ctx context.Context, code string) (*entity.Session, error) {
	response, err := that.client.Get(ctx, sessionKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, code)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by code: %w", err)
	}

	return decodeSession(response)
}

// Modify reads the session, applies fn and writes the result back inside an
// optimistic transaction, retrying when another writer got there first.
func (that *SessionRepository) Modify(
	ctx context.Context, code string, fn func(*entity.Session) error,
) (*entity.Session, error) {
	key := sessionKey(code)

	var modified *entity.Session

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, code)
		}

		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}

		session, err := decodeSession(response)
		if err != nil {
			return err
		}

		if err = fn(session); err != nil {
			return err
		}

		sessionJSON, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("could not marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, sessionJSON, that.ttl)
			return nil
		})
		if err != nil {
			return err //nolint: wrapcheck // TxFailedErr is matched by the caller
		}

		modified = session

		return nil
	}

	for range maxModifyAttempts {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to modify session: %w", err)
		}

		return modified, nil
	}

	return nil, fmt.Errorf("failed to modify session %s: too much contention", code)
}

func decodeSession(data []byte) (*entity.Session, error) {
	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}
