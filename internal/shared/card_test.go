package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	c, err := ParseCard("AH")
	require.NoError(t, err)
	assert.Equal(t, Card{Rank: "A", Suit: Hearts}, c)

	c, err = ParseCard("10s")
	require.NoError(t, err)
	assert.Equal(t, Card{Rank: "10", Suit: Spades}, c)

	for _, bad := range []string{"", "H", "1H", "AX", "11D", "XYZQ"} {
		_, err := ParseCard(bad)
		assert.Error(t, err, "code %q should be rejected", bad)
	}
}

func TestCardValue(t *testing.T) {
	assert.Equal(t, 2, Card{Rank: "2", Suit: Clubs}.Value())
	assert.Equal(t, 10, Card{Rank: "10", Suit: Clubs}.Value())
	assert.Equal(t, 11, Card{Rank: "J", Suit: Clubs}.Value())
	assert.Equal(t, 12, Card{Rank: "Q", Suit: Clubs}.Value())
	assert.Equal(t, 13, Card{Rank: "K", Suit: Clubs}.Value())
	assert.Equal(t, 14, Card{Rank: "A", Suit: Clubs}.Value())
}

func TestCardJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Card{Rank: "Q", Suit: Diamonds})
	require.NoError(t, err)
	assert.Equal(t, `"QD"`, string(b))

	var c Card
	require.NoError(t, json.Unmarshal([]byte(`"10h"`), &c))
	assert.Equal(t, Card{Rank: "10", Suit: Hearts}, c)
}
