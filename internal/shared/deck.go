package shared

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// DeckSize is the number of cards in a full Whist deck.
const DeckSize = 52

// HandSize is the number of cards dealt to each of the four players.
const HandSize = 13

// NewDeck creates the 52 distinct rank/suit combinations in a fixed order.
func NewDeck() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range Suits() {
		for _, rank := range Ranks() {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	return cards
}

// NewShuffledDeck returns a full deck in a uniformly random permutation.
func NewShuffledDeck() []Card {
	cards := NewDeck()
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards
}

// Deal partitions a 52-card deck into four 13-card hands in deck order:
// cards 0-12 go to position 0, 13-25 to position 1, and so on.
// The input must be exactly 52 unique cards.
func Deal(deck []Card) ([4][]Card, error) {
	var hands [4][]Card
	if len(deck) != DeckSize {
		return hands, fmt.Errorf("deal: expected %d cards, got %d", DeckSize, len(deck))
	}
	seen := make(map[Card]bool, DeckSize)
	for _, c := range deck {
		if seen[c] {
			return hands, fmt.Errorf("deal: duplicate card %s in deck", c)
		}
		seen[c] = true
	}
	for i := 0; i < 4; i++ {
		hand := make([]Card, HandSize)
		copy(hand, deck[i*HandSize:(i+1)*HandSize])
		hands[i] = hand
	}
	return hands, nil
}

var displaySuitOrder = map[Suit]int{
	Spades:   0,
	Hearts:   1,
	Diamonds: 2,
	Clubs:    3,
}

// SortForDisplay orders a hand by suit (S, H, D, C) then descending value.
// The ordering is presentational and never affects play legality, but the
// trump derivation reads the dealer's sorted hand, so it must stay stable.
func SortForDisplay(hand []Card) []Card {
	sort.SliceStable(hand, func(i, j int) bool {
		if hand[i].Suit != hand[j].Suit {
			return displaySuitOrder[hand[i].Suit] < displaySuitOrder[hand[j].Suit]
		}
		return hand[i].Value() > hand[j].Value()
	})
	return hand
}
