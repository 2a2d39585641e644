package shared

// IsLegalPlay reports whether playing card from hand is legal given the suit
// led and the trick so far.
//
// A card not currently held is never legal. The opening play of a trick may be
// any held card. Otherwise the player must follow the lead suit when able;
// with no lead-suit card in hand, any held card may be discarded or trumped.
func IsLegalPlay(card Card, hand []Card, lead Suit, trick Trick) bool {
	held := false
	for _, c := range hand {
		if c == card {
			held = true
			break
		}
	}
	if !held {
		return false
	}

	if len(trick) == 0 {
		return true
	}

	hasLead := false
	for _, c := range hand {
		if c.Suit == lead {
			hasLead = true
			break
		}
	}
	if hasLead && card.Suit != lead {
		return false
	}
	return true
}
