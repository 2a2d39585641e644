package shared

// PlayedCard stores a card along with the position of the player who played it.
type PlayedCard struct {
	Position int  `json:"position"`
	Card     Card `json:"card"`
}

// Trick is the ordered sequence of plays in the current trick, 0 to 4 entries.
type Trick []PlayedCard

// Winner determines the winning position of a completed trick.
//
// The first play is the provisional winner. Each later play overtakes it if:
//   - it is trump and the provisional winner is not, or
//   - both are trump and it has the higher value, or
//   - it follows the lead suit, the provisional winner is not trump, and it is
//     the highest lead-suit card seen so far.
//
// A play that is neither trump nor lead suit can never win. Ties cannot occur
// in a single deck.
func (t Trick) Winner(trump, lead Suit) int {
	winning := t[0]
	for _, play := range t[1:] {
		switch {
		case play.Card.Suit == trump && winning.Card.Suit != trump:
			winning = play
		case play.Card.Suit == trump && winning.Card.Suit == trump:
			if play.Card.Value() > winning.Card.Value() {
				winning = play
			}
		case play.Card.Suit == lead && winning.Card.Suit != trump:
			if winning.Card.Suit != lead || play.Card.Value() > winning.Card.Value() {
				winning = play
			}
		}
	}
	return winning.Position
}

// Clone returns a copy of the trick.
func (t Trick) Clone() Trick {
	cp := make(Trick, len(t))
	copy(cp, t)
	return cp
}
