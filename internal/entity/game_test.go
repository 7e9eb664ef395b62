package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
)

func TestParseKind(t *testing.T) {
	t.Run("Known kinds are parsed", func(t *testing.T) {
		for _, kind := range Kinds() {
			// When: parsing the string form of a known kind
			parsed, err := ParseKind(string(kind))

			// Then: the same kind is returned
			require.NoError(t, err)
			assert.Equal(t, kind, parsed)
		}
	})

	t.Run("Unknown kind is rejected", func(t *testing.T) {
		// When: parsing an unknown kind
		_, err := ParseKind("chess")

		// Then: ErrUnknownGameKind is returned
		require.ErrorIs(t, err, apperror.ErrUnknownGameKind)
	})
}

func TestParseDifficulty(t *testing.T) {
	t.Run("Empty value falls back to medium", func(t *testing.T) {
		difficulty, err := ParseDifficulty("")

		require.NoError(t, err)
		assert.Equal(t, DifficultyMedium, difficulty)
	})

	t.Run("Unknown value is rejected", func(t *testing.T) {
		_, err := ParseDifficulty("insane")

		require.ErrorIs(t, err, apperror.ErrUnknownDifficulty)
	})
}

func TestSeatMarks(t *testing.T) {
	// Given: both seats
	// Then: the first seat plays X, the second plays O, and the mapping round trips
	assert.Equal(t, MarkX, SeatFirst.Mark())
	assert.Equal(t, MarkO, SeatSecond.Mark())
	assert.Equal(t, SeatFirst, SeatOf(MarkX))
	assert.Equal(t, SeatSecond, SeatOf(MarkO))
	assert.Equal(t, MarkO, MarkX.Opponent())
	assert.Equal(t, MarkX, MarkO.Opponent())
}

func TestResult(t *testing.T) {
	assert.False(t, ResultPending.IsTerminal())
	assert.True(t, ResultDraw.IsTerminal())
	assert.Equal(t, ResultO, WinnerOf(MarkO))
	assert.Equal(t, ResultX, WinnerOf(MarkX))
}

func TestSession_Join(t *testing.T) {
	t.Run("Second player takes the second seat and starts the session", func(t *testing.T) {
		// Given: a waiting session with a host
		session := NewSession("ABC123", KindMisere, &Player{ID: "host"})

		// When: a guest joins
		guest := &Player{ID: "guest"}
		err := session.Join(guest)

		// Then: the guest is seated second and the session is playing
		require.NoError(t, err)
		assert.Equal(t, SeatFirst, session.Players[0].Seat)
		assert.Equal(t, SeatSecond, guest.Seat)
		assert.Equal(t, StatusPlaying, session.Status)

		found, ok := session.PlayerByID("guest")
		require.True(t, ok)
		assert.Same(t, guest, found)
	})

	t.Run("Third player is rejected", func(t *testing.T) {
		// Given: a session that is already playing
		session := NewSession("ABC123", KindMisere, &Player{ID: "host"})
		require.NoError(t, session.Join(&Player{ID: "guest"}))

		// When: another player tries to join
		err := session.Join(&Player{ID: "late"})

		// Then: ErrSessionFull is returned and the session is unchanged
		require.ErrorIs(t, err, apperror.ErrSessionFull)
		assert.Len(t, session.Players, 2)
	})
}
