package game

import "errors"

// Expected, user-facing rejections. Each is reported only to the initiating
// caller and leaves room state untouched.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrDuplicateRoom      = errors.New("room code already in use")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrNotInGame          = errors.New("player not in game")
	ErrNotPlayingPhase    = errors.New("game is not in the playing phase")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrIllegalPlay        = errors.New("illegal card play")
)

// ErrPersistence indicates the durable store rejected a write-through. The
// in-memory state is rolled back so it never runs ahead of the store.
var ErrPersistence = errors.New("failed to persist game state")
