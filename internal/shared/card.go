package shared

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Suit represents the suit of a card (Hearts, Diamonds, Clubs, Spades).
type Suit string

const (
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
	Spades   Suit = "S"
)

// Suits lists all four suits in deck-building order.
func Suits() []Suit {
	return []Suit{Hearts, Diamonds, Clubs, Spades}
}

// Ranks lists all thirteen ranks in ascending order of value.
func Ranks() []string {
	return []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
}

// Card represents a single card in the Whist deck.
// It serializes as its short code ("AS", "10H") on the wire.
type Card struct {
	Rank string
	Suit Suit
}

var faceValues = map[string]int{
	"J": 11,
	"Q": 12,
	"K": 13,
	"A": 14,
}

// Value returns the card's ordinal value for trick comparison.
// Numeric ranks equal their number, J=11, Q=12, K=13, A=14.
func (c Card) Value() int {
	if v, ok := faceValues[c.Rank]; ok {
		return v
	}
	v, _ := strconv.Atoi(c.Rank)
	return v
}

// Code returns the card's short string form, e.g. "QD" or "10S".
func (c Card) Code() string {
	return c.Rank + string(c.Suit)
}

func (c Card) String() string {
	return c.Code()
}

// ParseCard parses a short card code. Input is case-insensitive.
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || len(s) > 3 {
		return Card{}, fmt.Errorf("invalid card code %q", s)
	}
	rank := s[:len(s)-1]
	suit := Suit(s[len(s)-1:])

	validSuit := false
	for _, k := range Suits() {
		if suit == k {
			validSuit = true
			break
		}
	}
	validRank := false
	for _, r := range Ranks() {
		if rank == r {
			validRank = true
			break
		}
	}
	if !validSuit || !validRank {
		return Card{}, fmt.Errorf("invalid card code %q", s)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// MarshalJSON encodes the card as its short code string.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Code())
}

// UnmarshalJSON decodes a card from its short code string.
func (c *Card) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	parsed, err := ParseCard(code)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
