package apperror

import "errors"

// rule violations; callers treat these as no-ops for game state.
var (
	ErrGameFinished       = errors.New("game is already finished")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrCellOccupied       = errors.New("cell is already occupied")
	ErrInvalidCell        = errors.New("invalid cell index")
	ErrWrongPhase         = errors.New("action is not allowed in the current phase")
	ErrUnsupportedAction  = errors.New("action is not supported by this game")
	ErrNotYourPiece       = errors.New("source cell does not hold your piece")
	ErrNotAdjacent        = errors.New("destination is not orthogonally adjacent")
	ErrBoardClosed        = errors.New("small board is already decided")
	ErrWrongTarget        = errors.New("move must be played on the target board")
	ErrCardRevealed       = errors.New("card is already face up")
	ErrProcessing         = errors.New("previous action is still being processed")
	ErrNothingToResolve   = errors.New("nothing to resolve")
	ErrNoAvailableMoves   = errors.New("no available moves")
	ErrUnknownGameKind    = errors.New("unknown game kind")
	ErrUnknownMode        = errors.New("unknown game mode")
	ErrUnknownDifficulty  = errors.New("unknown difficulty")
	ErrGameKindMismatch   = errors.New("snapshot belongs to another game kind")
	ErrGameIsNotStarted   = errors.New("game is not started")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionFull        = errors.New("session is already full")
	ErrSessionExists      = errors.New("session already exists")
	ErrPlayerNotInSession = errors.New("player is not seated in this session")
	ErrInvalidPlayerID    = errors.New("invalid player id")
)

// IsRuleViolation reports whether err is a rejected action rather than a fault.
func IsRuleViolation(err error) bool {
	for _, target := range []error{
		ErrGameFinished, ErrNotYourTurn, ErrCellOccupied, ErrInvalidCell, ErrWrongPhase,
		ErrUnsupportedAction, ErrNotYourPiece, ErrNotAdjacent, ErrBoardClosed, ErrWrongTarget,
		ErrCardRevealed, ErrProcessing, ErrGameIsNotStarted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
