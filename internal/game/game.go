package game

import (
	"time"

	"whist-game/internal/shared"
)

// Status represents the lifecycle phase of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusBidding  Status = "bidding" // reserved, unused in this variant
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// MatchRounds is the fixed number of rounds in a match.
const MatchRounds = 5

// Bid is a placeholder for the unused bidding phase.
type Bid struct {
	Position int `json:"position"`
	Bid      int `json:"bid"`
}

// Game is the authoritative document for one Whist room. It is what gets
// persisted to the store and, redacted, broadcast to clients.
type Game struct {
	RoomCode     string           `json:"roomCode"`
	Players      []*shared.Player `json:"players"`
	Status       Status           `json:"status"`
	CurrentTurn  int              `json:"currentTurn"`
	CurrentTrick shared.Trick     `json:"currentTrick"`
	TrumpSuit    shared.Suit      `json:"trumpSuit,omitempty"`
	LeadSuit     shared.Suit      `json:"leadSuit,omitempty"`
	Bids         []Bid            `json:"bids"`
	Scores       map[int]int      `json:"scores"`
	Round        int              `json:"round"`
	Dealer       int              `json:"dealer"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// NewGame creates a waiting room with its first player seated at position 0.
func NewGame(roomCode string, first *shared.Player) *Game {
	now := time.Now().UTC()
	return &Game{
		RoomCode:     roomCode,
		Players:      []*shared.Player{first},
		Status:       StatusWaiting,
		CurrentTurn:  0,
		CurrentTrick: shared.Trick{},
		Bids:         []Bid{},
		Scores:       map[int]int{},
		Round:        1,
		Dealer:       0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// PlayerByID finds a seated player by user ID.
func (g *Game) PlayerByID(userID string) (*shared.Player, bool) {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the game. Used to snapshot state before a
// mutation so a failed write-through can be rolled back.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Players = make([]*shared.Player, len(g.Players))
	for i, p := range g.Players {
		cp.Players[i] = p.Clone()
	}
	cp.CurrentTrick = g.CurrentTrick.Clone()
	cp.Bids = make([]Bid, len(g.Bids))
	copy(cp.Bids, g.Bids)
	cp.Scores = make(map[int]int, len(g.Scores))
	for k, v := range g.Scores {
		cp.Scores[k] = v
	}
	return &cp
}

// RedactFor returns a copy of the game suitable for sending to userID:
// the recipient sees their own hand, everyone else's hand is reduced to a
// card count.
func (g *Game) RedactFor(userID string) *Game {
	cp := g.Clone()
	for _, p := range cp.Players {
		p.HandCount = len(p.Hand)
		if p.UserID != userID {
			p.Hand = nil
		}
	}
	return cp
}
