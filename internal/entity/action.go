package entity

type ActionType string

const (
	ActionPlace ActionType = "place"
	ActionMove  ActionType = "move"
	ActionFlip  ActionType = "flip"
	ActionRoll  ActionType = "roll"
)

// Action is a player's request against a game. Board is only read by ultimate,
// From/To only by moving.
type Action struct {
	Type  ActionType `json:"type" mapstructure:"type"`
	Cell  int        `json:"cell" mapstructure:"cell"`
	Board int        `json:"board" mapstructure:"board"`
	From  int        `json:"from" mapstructure:"from"`
	To    int        `json:"to" mapstructure:"to"`
}

func Place(cell int) Action {
	return Action{Type: ActionPlace, Cell: cell}
}

func PlaceOn(board, cell int) Action {
	return Action{Type: ActionPlace, Board: board, Cell: cell}
}

func MovePiece(from, to int) Action {
	return Action{Type: ActionMove, From: from, To: to}
}

func Flip(card int) Action {
	return Action{Type: ActionFlip, Cell: card}
}

func Roll() Action {
	return Action{Type: ActionRoll}
}

// Move records the last applied action for highlighting and sync. It is never
// authoritative state.
type Move struct {
	Action
	Mark    Mark  `json:"mark"`
	Flipped []int `json:"flipped,omitempty"`
	Dice    int   `json:"dice,omitempty"`
	Matched bool  `json:"matched,omitempty"`
}
