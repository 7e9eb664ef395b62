package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

var errRedisDown = errors.New("redis down")

type sessionRepoMock struct {
	mock.Mock
}

func (that *sessionRepoMock) Create(ctx context.Context, session *entity.Session) error {
	args := that.Called(ctx, session)
	return args.Error(0)
}

func (that *sessionRepoMock) GetByCode(ctx context.Context, code string) (*entity.Session, error) {
	args := that.Called(ctx, code)
	return args.Get(0).(*entity.Session), args.Error(1)
}

// Modify runs fn against the session registered with OnModify, like the real
// repository does inside its transaction.
func (that *sessionRepoMock) Modify(
	ctx context.Context, code string, fn func(*entity.Session) error,
) (*entity.Session, error) {
	args := that.Called(ctx, code)

	session, _ := args.Get(0).(*entity.Session)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	if err := fn(session); err != nil {
		return nil, err
	}

	return session, nil
}

type brokerMock struct {
	mock.Mock
}

func (that *brokerMock) Publish(ctx context.Context, code string, update *entity.SessionUpdate) error {
	args := that.Called(ctx, code, update)
	return args.Error(0)
}

func (that *brokerMock) Subscribe(
	ctx context.Context, code string, onUpdate func(*entity.SessionUpdate),
) (func() error, error) {
	args := that.Called(ctx, code, onUpdate)

	unsubscribe, _ := args.Get(0).(func() error)

	return unsubscribe, args.Error(1)
}

func newTestManager() (*SessionManager, *sessionRepoMock, *brokerMock) {
	repo := &sessionRepoMock{}
	broker := &brokerMock{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewSessionManager(logger, repo, broker), repo, broker
}

func TestSessionManager_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Host gets the first seat and a fresh code", func(t *testing.T) {
		// Given: a repository that accepts the session
		manager, repo, _ := newTestManager()
		repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Session")).Return(nil).Once()

		// When: a memory session is created
		seating, err := manager.CreateSession(ctx, entity.KindMemory, "alice")

		// Then: the seating describes a waiting session with a shared deck
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), seating.SessionCode)
		assert.NotEmpty(t, seating.PlayerID)
		assert.Equal(t, entity.SeatFirst, seating.Seat)
		assert.Equal(t, entity.StatusWaiting, seating.Session.Status)
		require.NotNil(t, seating.Session.Snapshot)
		assert.Equal(t, entity.SeatFirst, seating.Session.Snapshot.CurrentTurn)

		var state struct {
			Cards []json.RawMessage `json:"cards"`
		}
		require.NoError(t, json.Unmarshal(seating.Session.Snapshot.State, &state))
		assert.Len(t, state.Cards, 16)
		repo.AssertExpectations(t)
	})

	t.Run("Code collision is retried", func(t *testing.T) {
		manager, repo, _ := newTestManager()
		repo.On("Create", mock.Anything, mock.Anything).Return(apperror.ErrSessionExists).Once()
		repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		seating, err := manager.CreateSession(ctx, entity.KindClassic, "alice")

		require.NoError(t, err)
		assert.NotEmpty(t, seating.SessionCode)
		repo.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("Unknown kind is rejected before storage", func(t *testing.T) {
		manager, repo, _ := newTestManager()

		_, err := manager.CreateSession(ctx, "chess", "alice")

		require.ErrorIs(t, err, apperror.ErrUnknownGameKind)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Storage failure surfaces", func(t *testing.T) {
		manager, repo, _ := newTestManager()
		repo.On("Create", mock.Anything, mock.Anything).Return(errRedisDown).Once()

		_, err := manager.CreateSession(ctx, entity.KindClassic, "alice")

		require.ErrorIs(t, err, errRedisDown)
	})
}

func TestSessionManager_JoinSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Guest takes the second seat and the host is told", func(t *testing.T) {
		// Given: a waiting session
		manager, repo, broker := newTestManager()
		session := entity.NewSession("ABC123", entity.KindClassic, &entity.Player{ID: "host"})

		repo.On("Modify", mock.Anything, "ABC123").Return(session, nil).Once()
		broker.On("Publish", mock.Anything, "ABC123", mock.MatchedBy(func(update *entity.SessionUpdate) bool {
			return update.Session != nil && update.Snapshot == nil
		})).Return(nil).Once()

		// When: a guest joins with a lower-case code
		seating, err := manager.JoinSession(ctx, " abc123 ", "bob")

		// Then: the guest is seated second and the session is playing
		require.NoError(t, err)
		assert.Equal(t, entity.SeatSecond, seating.Seat)
		assert.Equal(t, entity.StatusPlaying, seating.Session.Status)
		broker.AssertExpectations(t)
	})

	t.Run("Full session refuses a third player", func(t *testing.T) {
		manager, repo, broker := newTestManager()
		session := entity.NewSession("ABC123", entity.KindClassic, &entity.Player{ID: "host"})
		require.NoError(t, session.Join(&entity.Player{ID: "guest"}))

		repo.On("Modify", mock.Anything, "ABC123").Return(session, nil).Once()

		_, err := manager.JoinSession(ctx, "ABC123", "late")

		require.ErrorIs(t, err, apperror.ErrSessionFull)
		broker.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing session", func(t *testing.T) {
		manager, repo, _ := newTestManager()
		repo.On("Modify", mock.Anything, "NOPE00").Return(nil, apperror.ErrSessionNotFound).Once()

		_, err := manager.JoinSession(ctx, "NOPE00", "bob")

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestSessionManager_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("Terminal snapshot finishes the session", func(t *testing.T) {
		// Given: a playing session
		manager, repo, broker := newTestManager()
		session := entity.NewSession("ABC123", entity.KindClassic, &entity.Player{ID: "host"})
		require.NoError(t, session.Join(&entity.Player{ID: "guest"}))

		snapshot := &entity.Snapshot{Kind: entity.KindClassic, Result: entity.ResultX, Author: "host"}

		repo.On("Modify", mock.Anything, "ABC123").Return(session, nil).Once()
		broker.On("Publish", mock.Anything, "ABC123", &entity.SessionUpdate{Snapshot: snapshot}).Return(nil).Once()

		// When: the winning snapshot is published
		err := manager.Publish(ctx, "ABC123", snapshot)

		// Then: it is stored and broadcast
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFinished, session.Status)
		assert.Same(t, snapshot, session.Snapshot)
		broker.AssertExpectations(t)
	})

	t.Run("Snapshot of another kind is refused", func(t *testing.T) {
		manager, repo, broker := newTestManager()
		session := entity.NewSession("ABC123", entity.KindClassic, &entity.Player{ID: "host"})

		repo.On("Modify", mock.Anything, "ABC123").Return(session, nil).Once()

		err := manager.Publish(ctx, "ABC123", &entity.Snapshot{Kind: entity.KindMemory})

		require.ErrorIs(t, err, apperror.ErrGameKindMismatch)
		assert.Nil(t, session.Snapshot)
		broker.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSessionManager_Subscribe(t *testing.T) {
	manager, _, broker := newTestManager()
	unsubscribe := func() error { return nil }

	broker.On("Subscribe", mock.Anything, "ABC123", mock.Anything).Return(unsubscribe, nil).Once()

	got, err := manager.Subscribe(context.Background(), "abc123", func(*entity.SessionUpdate) {})

	require.NoError(t, err)
	require.NoError(t, got())
	broker.AssertExpectations(t)
}

func TestSessionManager_GetSession(t *testing.T) {
	manager, repo, _ := newTestManager()
	repo.On("GetByCode", mock.Anything, "ABC123").Return((*entity.Session)(nil), apperror.ErrSessionNotFound).Once()

	_, err := manager.GetSession(context.Background(), "abc123")

	require.ErrorIs(t, err, apperror.ErrSessionNotFound)
}
