package entity

// Mark identifies one of the two sides of a game.
type Mark string

const (
	MarkEmpty Mark = ""
	MarkX     Mark = "X"
	MarkO     Mark = "O"
)

func (that Mark) Opponent() Mark {
	if that == MarkX {
		return MarkO
	}

	return MarkX
}

// Seat is one of the two fixed participant slots of a session.
type Seat string

const (
	SeatFirst  Seat = "player1"
	SeatSecond Seat = "player2"
)

// Mark returns the mark played from the seat: the first seat always plays X.
func (that Seat) Mark() Mark {
	if that == SeatSecond {
		return MarkO
	}

	return MarkX
}

func SeatOf(mark Mark) Seat {
	if mark == MarkO {
		return SeatSecond
	}

	return SeatFirst
}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Seat Seat   `json:"seat"`
}
