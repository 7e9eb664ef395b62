package entity

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
)

type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusPlaying  SessionStatus = "playing"
	StatusFinished SessionStatus = "finished"
)

const maxSeats = 2

// Session is the record two remote seats share.
type Session struct {
	Code     string        `json:"code"`
	Kind     Kind          `json:"kind"`
	Status   SessionStatus `json:"status"`
	Players  []*Player     `json:"players"`
	Snapshot *Snapshot     `json:"snapshot,omitempty"`
}

func NewSession(code string, kind Kind, host *Player) *Session {
	host.Seat = SeatFirst

	return &Session{
		Code:    code,
		Kind:    kind,
		Status:  StatusWaiting,
		Players: []*Player{host},
	}
}

// Join seats the player in the second slot and starts the session.
func (that *Session) Join(player *Player) error {
	if that.Status != StatusWaiting || len(that.Players) >= maxSeats {
		return fmt.Errorf("%w: %s", apperror.ErrSessionFull, that.Code)
	}

	player.Seat = SeatSecond
	that.Players = append(that.Players, player)
	that.Status = StatusPlaying

	return nil
}

func (that *Session) PlayerByID(id string) (*Player, bool) {
	for _, player := range that.Players {
		if player.ID == id {
			return player, true
		}
	}

	return nil, false
}

func (that *Session) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Session) IsFinished() bool {
	return that.Status == StatusFinished
}

// Snapshot is the complete serializable state of a game at one point in time.
type Snapshot struct {
	Kind        Kind            `json:"kind"`
	State       json.RawMessage `json:"state"`
	CurrentTurn Seat            `json:"current_turn"`
	LastMove    *Move           `json:"last_move,omitempty"`
	Result      Result          `json:"result"`
	Author      string          `json:"author,omitempty"`
}

// Seating is what a seat learns after creating or joining a session.
type Seating struct {
	SessionCode string   `json:"session_code"`
	PlayerID    string   `json:"player_id"`
	Seat        Seat     `json:"seat"`
	Session     *Session `json:"session"`
}

// SessionUpdate is broadcast to every subscriber of a session. Exactly one
// of the fields is set.
type SessionUpdate struct {
	Session  *Session  `json:"session,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}
