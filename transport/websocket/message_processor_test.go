package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    entity.Action
		wantErr bool
	}{
		{name: "Whole number from JSON", payload: map[string]any{"type": "place", "cell": float64(4)}, want: entity.Place(4)},
		{name: "Fractional cell", payload: map[string]any{"type": "place", "cell": 1.9}, wantErr: true},
		{name: "Fractional move target", payload: map[string]any{"type": "move", "from": float64(0), "to": 3.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var action entity.Action

			err := decodePayload(&Message{Action: actionGameAct, Payload: tt.payload}, &action)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), errNotAnInteger.Error())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, action)
		})
	}
}

func TestSnapshotFeed(t *testing.T) {
	// Given: a feed that is still loading the stored session
	var applied []entity.Seat

	feed := newSnapshotFeed(func(snapshot *entity.Snapshot) {
		applied = append(applied, snapshot.CurrentTurn)
	})

	feed.push(&entity.Snapshot{CurrentTurn: entity.SeatFirst})
	feed.forget()
	feed.push(&entity.Snapshot{CurrentTurn: entity.SeatSecond})

	assert.Empty(t, applied)

	// When: the seat is ready
	feed.release()
	feed.push(&entity.Snapshot{CurrentTurn: entity.SeatFirst})

	// Then: only what arrived after the stored read is applied, in order
	assert.Equal(t, []entity.Seat{entity.SeatSecond, entity.SeatFirst}, applied)
}
