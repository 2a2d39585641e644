package shared

// Player represents a seated player in a Whist room.
// Position is assigned at join time and is the sole turn-order key.
type Player struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Position  int    `json:"position"` // 0: North, 1: East, 2: South, 3: West
	Hand      []Card `json:"hand,omitempty"`
	HandCount int    `json:"handCount"`
	TricksWon int    `json:"tricksWon"`
}

// NewPlayer creates a player with an empty hand at the given seat.
func NewPlayer(userID, name string, position int) *Player {
	return &Player{
		UserID:   userID,
		Name:     name,
		Position: position,
		Hand:     []Card{},
	}
}

// HasSuit reports whether the player holds at least one card of the suit.
func (p *Player) HasSuit(suit Suit) bool {
	for _, c := range p.Hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// HoldsCard reports whether the card is currently in the player's hand.
func (p *Player) HoldsCard(card Card) bool {
	for _, c := range p.Hand {
		if c == card {
			return true
		}
	}
	return false
}

// RemoveCard removes a card from the player's hand.
// Returns false if the card was not held.
func (p *Player) RemoveCard(card Card) bool {
	for i, c := range p.Hand {
		if c == card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	cp := *p
	cp.Hand = make([]Card, len(p.Hand))
	copy(cp.Hand, p.Hand)
	return &cp
}
