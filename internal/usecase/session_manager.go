package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
	"github.com/rocketscienceinc/tictactoe-variants/internal/rules"
)

const (
	codeAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength        = 6
	maxCreateAttempts = 5
)

type sessionRepo interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByCode(ctx context.Context, code string) (*entity.Session, error)
	Modify(ctx context.Context, code string, fn func(*entity.Session) error) (*entity.Session, error)
}

type broker interface {
	Publish(ctx context.Context, code string, update *entity.SessionUpdate) error
	Subscribe(ctx context.Context, code string, onUpdate func(*entity.SessionUpdate)) (func() error, error)
}

// SessionManager pairs two remote seats through a shared session record and
// relays their snapshots.
type SessionManager struct {
	logger *slog.Logger
	repo   sessionRepo
	broker broker
}

func NewSessionManager(logger *slog.Logger, repo sessionRepo, broker broker) *SessionManager {
	return &SessionManager{
		logger: logger,
		repo:   repo,
		broker: broker,
	}
}

// CreateSession opens a session of the given kind with the caller in the first seat.
func (that *SessionManager) CreateSession(ctx context.Context, kind entity.Kind, name string) (*entity.Seating, error) {
	log := that.logger.With("method", "CreateSession")

	game, err := rules.New(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	state, err := game.MarshalState()
	if err != nil {
		return nil, fmt.Errorf("failed to build initial state: %w", err)
	}

	host := &entity.Player{ID: uuid.NewString(), Name: name}

	for range maxCreateAttempts {
		session := entity.NewSession(newCode(), kind, host)
		session.Snapshot = &entity.Snapshot{
			Kind:        kind,
			State:       state,
			CurrentTurn: entity.SeatOf(game.Turn()),
			Result:      game.Result(),
			Author:      host.ID,
		}

		err = that.repo.Create(ctx, session)
		if errors.Is(err, apperror.ErrSessionExists) {
			log.Debug("session code collision", "code", session.Code)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}

		log.Info("session created", "code", session.Code, "kind", kind, "player_id", host.ID)

		return &entity.Seating{
			SessionCode: session.Code,
			PlayerID:    host.ID,
			Seat:        host.Seat,
			Session:     session,
		}, nil
	}

	return nil, fmt.Errorf("failed to allocate session code: %w", err)
}

// JoinSession takes the second seat and tells the host about it.
func (that *SessionManager) JoinSession(ctx context.Context, code, name string) (*entity.Seating, error) {
	log := that.logger.With("method", "JoinSession")

	code = NormalizeCode(code)
	guest := &entity.Player{ID: uuid.NewString(), Name: name}

	session, err := that.repo.Modify(ctx, code, func(session *entity.Session) error {
		return session.Join(guest)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	if err = that.broker.Publish(ctx, code, &entity.SessionUpdate{Session: session}); err != nil {
		log.Error("failed to announce join", "code", code, "error", err)
	}

	log.Info("session joined", "code", code, "player_id", guest.ID)

	return &entity.Seating{
		SessionCode: code,
		PlayerID:    guest.ID,
		Seat:        guest.Seat,
		Session:     session,
	}, nil
}

func (that *SessionManager) GetSession(ctx context.Context, code string) (*entity.Session, error) {
	session, err := that.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// Subscribe delivers every update of the session until ctx ends or the
// returned function is called. Updates may repeat.
func (that *SessionManager) Subscribe(
	ctx context.Context, code string, onUpdate func(*entity.SessionUpdate),
) (func() error, error) {
	unsubscribe, err := that.broker.Subscribe(ctx, NormalizeCode(code), onUpdate)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session: %w", err)
	}

	return unsubscribe, nil
}

// Publish records the snapshot as the session's latest state and broadcasts
// it. The last write wins.
func (that *SessionManager) Publish(ctx context.Context, code string, snapshot *entity.Snapshot) error {
	code = NormalizeCode(code)

	_, err := that.repo.Modify(ctx, code, func(session *entity.Session) error {
		if session.Kind != snapshot.Kind {
			return fmt.Errorf("%w: %s", apperror.ErrGameKindMismatch, snapshot.Kind)
		}

		session.Snapshot = snapshot
		if snapshot.Result.IsTerminal() {
			session.Status = entity.StatusFinished
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	if err = that.broker.Publish(ctx, code, &entity.SessionUpdate{Snapshot: snapshot}); err != nil {
		return fmt.Errorf("failed to broadcast snapshot: %w", err)
	}

	return nil
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newCode() string {
	var builder strings.Builder
	builder.Grow(codeLength)

	for range codeLength {
		builder.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))]) //nolint: gosec // it's ok
	}

	return builder.String()
}
