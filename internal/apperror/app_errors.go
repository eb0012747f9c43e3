package apperror

import "errors"

var (
	ErrGameFinished  = errors.New("game is already finished")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrInvalidCell   = errors.New("invalid cell index")
	ErrMatchNotFound = errors.New("match not found")
	ErrNotFound      = errors.New("not found")

	ErrNotParticipant   = errors.New("player is not a participant of the match")
	ErrNotAuthenticated = errors.New("player is not authenticated")
	ErrAlreadyInMatch   = errors.New("player is already in a match")
	ErrAlreadyQueued    = errors.New("player is already in the matchmaking queue")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidUsername  = errors.New("username is too long")
)
