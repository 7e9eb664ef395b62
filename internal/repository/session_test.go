package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
	"github.com/rocketscienceinc/tictactoe-variants/testing/suite"
)

func newTestSession(code string) *entity.Session {
	return entity.NewSession(code, entity.KindClassic, &entity.Player{ID: "host"})
}

func TestSessionRepository_Create(t *testing.T) {
	t.Run("Create stores the session with a TTL", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewSessionRepository(st.Storage, time.Hour)

		// Given: a fresh session
		session := newTestSession("ABC123")

		// When: it is created
		err := repo.Create(ctx, session)

		// Then: it is readable and expires eventually
		require.NoError(t, err)

		stored, err := repo.GetByCode(ctx, "ABC123")
		require.NoError(t, err)
		assert.Equal(t, session, stored)

		ttl, err := st.Storage.TTL(ctx, sessionKey("ABC123")).Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)
	})

	t.Run("Create refuses a taken code", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewSessionRepository(st.Storage, time.Hour)

		require.NoError(t, repo.Create(ctx, newTestSession("TAKEN1")))

		err := repo.Create(ctx, newTestSession("TAKEN1"))

		require.ErrorIs(t, err, apperror.ErrSessionExists)
	})
}

func TestSessionRepository_GetByCode(t *testing.T) {
	ctx, st := suite.New(t)
	repo := NewSessionRepository(st.Storage, time.Hour)

	_, err := repo.GetByCode(ctx, "NOPE00")

	require.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

func TestSessionRepository_Modify(t *testing.T) {
	t.Run("Modify persists the change", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewSessionRepository(st.Storage, time.Hour)
		require.NoError(t, repo.Create(ctx, newTestSession("JOIN01")))

		// When: a guest joins through Modify
		modified, err := repo.Modify(ctx, "JOIN01", func(session *entity.Session) error {
			return session.Join(&entity.Player{ID: "guest"})
		})

		// Then: the stored record has both seats
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPlaying, modified.Status)

		stored, err := repo.GetByCode(ctx, "JOIN01")
		require.NoError(t, err)
		require.Len(t, stored.Players, 2)
		assert.Equal(t, entity.SeatSecond, stored.Players[1].Seat)
	})

	t.Run("Modify returns the callback error and writes nothing", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewSessionRepository(st.Storage, time.Hour)
		require.NoError(t, repo.Create(ctx, newTestSession("FULL01")))

		join := func(id string) func(*entity.Session) error {
			return func(session *entity.Session) error {
				return session.Join(&entity.Player{ID: id})
			}
		}

		_, err := repo.Modify(ctx, "FULL01", join("guest"))
		require.NoError(t, err)

		_, err = repo.Modify(ctx, "FULL01", join("late"))
		require.ErrorIs(t, err, apperror.ErrSessionFull)

		stored, err := repo.GetByCode(ctx, "FULL01")
		require.NoError(t, err)
		assert.Len(t, stored.Players, 2)
	})

	t.Run("Concurrent joins seat exactly one guest", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewSessionRepository(st.Storage, time.Hour)
		require.NoError(t, repo.Create(ctx, newTestSession("RACE01")))

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			joined int
		)

		for _, id := range []string{"a", "b", "c"} {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := repo.Modify(ctx, "RACE01", func(session *entity.Session) error {
					return session.Join(&entity.Player{ID: id})
				})
				if err == nil {
					mu.Lock()
					joined++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, joined)
	})

	t.Run("Modify of a missing session", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewSessionRepository(st.Storage, time.Hour)

		_, err := repo.Modify(ctx, "GHOST1", func(*entity.Session) error { return nil })

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}
