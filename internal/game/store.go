package game

// Store is the durable record collaborator. Writes are keyed by room code, so
// writes to different rooms never conflict.
type Store interface {
	// FindByRoomCode loads a game by room code. The second return value is
	// false when no record exists.
	FindByRoomCode(code string) (*Game, bool, error)
	// Save upserts the full game state keyed by its room code.
	Save(g *Game) error
	// FindWaiting lists games still waiting for players.
	FindWaiting() ([]*Game, error)
}

// RenderFunc produces the message bytes for one recipient. Room broadcasts
// are rendered per recipient so each player only sees their own hand.
type RenderFunc func(userID string) []byte

// Sender delivers engine events to connected clients. The hub provides an
// implementation of this.
type Sender interface {
	// ToRoom sends a message to every client subscribed to the room.
	ToRoom(roomCode string, render RenderFunc)
	// ToUser sends a message to a single connected user, if present.
	ToUser(userID string, message []byte)
}
