package game

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"whist-game/internal/auth"
	"whist-game/internal/protocol"
	"whist-game/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with a switchable failure mode.
type memStore struct {
	mu    sync.Mutex
	games map[string]*Game
	fail  bool
}

func newMemStore() *memStore {
	return &memStore{games: make(map[string]*Game)}
}

func (m *memStore) Save(g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	m.games[g.RoomCode] = g.Clone()
	return nil
}

func (m *memStore) FindByRoomCode(code string) (*Game, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("store unavailable")
	}
	g, ok := m.games[code]
	if !ok {
		return nil, false, nil
	}
	return g.Clone(), true, nil
}

func (m *memStore) FindWaiting() ([]*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Game
	for _, g := range m.games {
		if g.Status == StatusWaiting {
			out = append(out, g.Clone())
		}
	}
	return out, nil
}

func (m *memStore) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// recordingSender captures room broadcasts for a fixed member list.
type recordingSender struct {
	mu      sync.Mutex
	members []string
	events  []protocol.MsgType
}

func (r *recordingSender) ToRoom(roomCode string, render RenderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recorded := false
	for _, uid := range r.members {
		if msg := render(uid); msg != nil && !recorded {
			var m protocol.Message
			if err := json.Unmarshal(msg, &m); err == nil {
				r.events = append(r.events, m.Type)
				recorded = true
			}
		}
	}
}

func (r *recordingSender) ToUser(userID string, message []byte) {}

func (r *recordingSender) recordedEvents() []protocol.MsgType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.MsgType, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingSender) hasEvent(event protocol.MsgType) bool {
	for _, e := range r.recordedEvents() {
		if e == event {
			return true
		}
	}
	return false
}

func identity(n string) auth.Identity {
	return auth.Identity{UserID: "user-" + n, Name: n}
}

func newTestSession(t *testing.T) (*Session, *memStore, *recordingSender) {
	t.Helper()
	store := newMemStore()
	sender := &recordingSender{members: []string{"user-a", "user-b", "user-c", "user-d"}}
	g := NewGame("ABCD", shared.NewPlayer("user-a", "a", 0))
	require.NoError(t, store.Save(g))
	return NewSession(g, store, sender, 10*time.Millisecond), store, sender
}

func fillRoom(t *testing.T, sess *Session) {
	t.Helper()
	for _, n := range []string{"b", "c", "d"} {
		rejoined, err := sess.Join(identity(n))
		require.NoError(t, err)
		require.False(t, rejoined)
	}
}

func TestFourthJoinStartsGame(t *testing.T) {
	sess, store, sender := newTestSession(t)
	fillRoom(t, sess)

	g := sess.Snapshot()
	assert.Equal(t, StatusPlaying, g.Status)
	assert.Len(t, g.Players, 4)
	for i, p := range g.Players {
		assert.Equal(t, i, p.Position)
		assert.Len(t, p.Hand, shared.HandSize)
	}
	assert.Equal(t, 1, g.CurrentTurn, "player left of the dealer leads")

	dealerHand := g.Players[g.Dealer].Hand
	assert.Equal(t, dealerHand[len(dealerHand)-1].Suit, g.TrumpSuit,
		"trump comes from the dealer's last sorted card")

	saved, found, err := store.FindByRoomCode("ABCD")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusPlaying, saved.Status)

	assert.True(t, sender.hasEvent(protocol.EventGameStarted))
	assert.True(t, sender.hasEvent(protocol.EventPlayerJoined))
}

func TestRejoinIsIdempotent(t *testing.T) {
	sess, _, _ := newTestSession(t)
	fillRoom(t, sess)

	before := sess.Snapshot()
	rejoined, err := sess.Join(identity("b"))
	require.NoError(t, err)
	assert.True(t, rejoined)

	after := sess.Snapshot()
	assert.Len(t, after.Players, 4)
	assert.Equal(t, before.Players[1].Position, after.Players[1].Position)
}

func TestJoinFullRoomRejected(t *testing.T) {
	sess, _, _ := newTestSession(t)
	fillRoom(t, sess)

	_, err := sess.Join(identity("e"))
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinStartedGameRejected(t *testing.T) {
	store := newMemStore()
	g := NewGame("WXYZ", shared.NewPlayer("user-a", "a", 0))
	g.Status = StatusPlaying
	sess := NewSession(g, store, &recordingSender{}, time.Millisecond)

	_, err := sess.Join(identity("b"))
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)
}

func TestJoinPersistFailureRollsBack(t *testing.T) {
	sess, store, _ := newTestSession(t)
	store.setFail(true)

	_, err := sess.Join(identity("b"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, sess.Snapshot().Players, 1, "failed join must not seat the player")
}

// fixedGame builds a deterministic mid-round position: trump hearts,
// position 1 has led 2H, position 2 to act holding 3D and AH.
func fixedGame(t *testing.T) *Game {
	t.Helper()
	g := NewGame("ABCD", shared.NewPlayer("user-a", "a", 0))
	for i, n := range []string{"b", "c", "d"} {
		g.Players = append(g.Players, shared.NewPlayer("user-"+n, n, i+1))
	}
	g.Status = StatusPlaying
	g.TrumpSuit = shared.Hearts
	g.Dealer = 0

	g.Players[0].Hand = hand(t, "KS", "QS")
	g.Players[1].Hand = hand(t, "4H", "5C")
	g.Players[2].Hand = hand(t, "3D", "AH")
	g.Players[3].Hand = hand(t, "9C", "8C")

	g.CurrentTrick = shared.Trick{{Position: 1, Card: mustCard(t, "2H")}}
	g.LeadSuit = shared.Hearts
	g.CurrentTurn = 2
	return g
}

func hand(t *testing.T, codes ...string) []shared.Card {
	t.Helper()
	cards := make([]shared.Card, len(codes))
	for i, code := range codes {
		c, err := shared.ParseCard(code)
		require.NoError(t, err)
		cards[i] = c
	}
	return cards
}

func mustCard(t *testing.T, code string) shared.Card {
	t.Helper()
	c, err := shared.ParseCard(code)
	require.NoError(t, err)
	return c
}

// settlingGame builds the state the store holds at trick completion: a full
// trick awaiting settlement, AH from position 2 winning under hearts trump,
// the winner's trick already counted.
func settlingGame(t *testing.T) *Game {
	t.Helper()
	g := fixedGame(t)
	g.CurrentTrick = shared.Trick{
		{Position: 1, Card: mustCard(t, "2H")},
		{Position: 2, Card: mustCard(t, "AH")},
		{Position: 3, Card: mustCard(t, "9C")},
		{Position: 0, Card: mustCard(t, "KS")},
	}
	g.Players[0].Hand = hand(t, "QS")
	g.Players[1].Hand = hand(t, "5C")
	g.Players[2].Hand = hand(t, "3D")
	g.Players[3].Hand = hand(t, "8C")
	g.Players[2].TricksWon = 1
	return g
}

func TestPlayCardMustFollowSuit(t *testing.T) {
	store := newMemStore()
	sess := NewSession(fixedGame(t), store, &recordingSender{}, time.Millisecond)

	err := sess.PlayCard("user-c", mustCard(t, "3D"))
	assert.ErrorIs(t, err, ErrIllegalPlay)

	g := sess.Snapshot()
	assert.Len(t, g.CurrentTrick, 1, "rejected play must not mutate the trick")
	assert.Len(t, g.Players[2].Hand, 2)

	require.NoError(t, sess.PlayCard("user-c", mustCard(t, "AH")))
	g = sess.Snapshot()
	assert.Len(t, g.CurrentTrick, 2)
	assert.Equal(t, 3, g.CurrentTurn)
}

func TestPlayCardRejections(t *testing.T) {
	store := newMemStore()
	sess := NewSession(fixedGame(t), store, &recordingSender{}, time.Millisecond)

	err := sess.PlayCard("user-x", mustCard(t, "AH"))
	assert.ErrorIs(t, err, ErrNotInGame)

	err = sess.PlayCard("user-d", mustCard(t, "9C"))
	assert.ErrorIs(t, err, ErrNotYourTurn)

	err = sess.PlayCard("user-c", mustCard(t, "KS"))
	assert.ErrorIs(t, err, ErrIllegalPlay, "card not in hand")
}

func TestPlayCardWrongPhase(t *testing.T) {
	store := newMemStore()
	g := fixedGame(t)
	g.Status = StatusWaiting
	sess := NewSession(g, store, &recordingSender{}, time.Millisecond)

	err := sess.PlayCard("user-c", mustCard(t, "AH"))
	assert.ErrorIs(t, err, ErrNotPlayingPhase)
}

func TestTrickResolvesAndSettles(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{members: []string{"user-a", "user-b", "user-c", "user-d"}}
	sess := NewSession(fixedGame(t), store, sender, 10*time.Millisecond)

	require.NoError(t, sess.PlayCard("user-c", mustCard(t, "AH")))
	require.NoError(t, sess.PlayCard("user-d", mustCard(t, "9C")))
	require.NoError(t, sess.PlayCard("user-a", mustCard(t, "KS")))

	g := sess.Snapshot()
	require.Len(t, g.CurrentTrick, 4)
	assert.Equal(t, 1, g.Players[2].TricksWon, "AH wins the trick under hearts trump")
	assert.True(t, sender.hasEvent(protocol.EventTrickComplete))

	// A fifth play on the full trick is rejected while the settle is pending.
	err := sess.PlayCard("user-a", mustCard(t, "QS"))
	assert.ErrorIs(t, err, ErrNotYourTurn)

	require.Eventually(t, func() bool {
		g := sess.Snapshot()
		return len(g.CurrentTrick) == 0 && g.CurrentTurn == 2
	}, time.Second, 5*time.Millisecond, "settle clears the trick and hands the lead to the winner")

	g = sess.Snapshot()
	assert.Empty(t, g.LeadSuit)
	assert.True(t, sender.hasEvent(protocol.EventNextTrick))
}

func TestRestoredFullTrickSettles(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Save(settlingGame(t)))

	// Rebuild the session from the durable record, as after a restart in the
	// settle window.
	loaded, found, err := store.FindByRoomCode("ABCD")
	require.NoError(t, err)
	require.True(t, found)

	sender := &recordingSender{members: []string{"user-a", "user-b", "user-c", "user-d"}}
	sess := NewSession(loaded, store, sender, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		g := sess.Snapshot()
		return len(g.CurrentTrick) == 0 && g.CurrentTurn == 2
	}, time.Second, time.Millisecond, "restored trick must settle on its own")

	g := sess.Snapshot()
	assert.Equal(t, 1, g.Players[2].TricksWon, "settling a restored trick must not count it twice")

	require.NoError(t, sess.PlayCard("user-c", mustCard(t, "3D")), "winner leads the next trick")
}

func TestSettlePersistFailureRetries(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{members: []string{"user-a", "user-b", "user-c", "user-d"}}
	sess := NewSession(fixedGame(t), store, sender, 10*time.Millisecond)

	require.NoError(t, sess.PlayCard("user-c", mustCard(t, "AH")))
	require.NoError(t, sess.PlayCard("user-d", mustCard(t, "9C")))
	require.NoError(t, sess.PlayCard("user-a", mustCard(t, "KS")))
	store.setFail(true)

	time.Sleep(35 * time.Millisecond)
	g := sess.Snapshot()
	assert.Len(t, g.CurrentTrick, 4, "failed settle rolls back and stays pending")

	store.setFail(false)
	require.Eventually(t, func() bool {
		g := sess.Snapshot()
		return len(g.CurrentTrick) == 0 && g.CurrentTurn == 2
	}, time.Second, time.Millisecond, "settle retries once the store recovers")
}

func TestCloseAbandonsPendingSettle(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{members: []string{"user-a", "user-b", "user-c", "user-d"}}
	sess := NewSession(fixedGame(t), store, sender, 20*time.Millisecond)

	require.NoError(t, sess.PlayCard("user-c", mustCard(t, "AH")))
	require.NoError(t, sess.PlayCard("user-d", mustCard(t, "9C")))
	require.NoError(t, sess.PlayCard("user-a", mustCard(t, "KS")))

	sess.Close()
	time.Sleep(60 * time.Millisecond)

	g := sess.Snapshot()
	assert.Len(t, g.CurrentTrick, 4, "closed session must not settle the trick")
	assert.False(t, sender.hasEvent(protocol.EventNextTrick))
}

// autoplay drives the current player to play their first legal card.
func autoplay(t *testing.T, sess *Session) {
	t.Helper()
	g := sess.Snapshot()
	player := g.Players[g.CurrentTurn]
	for _, c := range player.Hand {
		if shared.IsLegalPlay(c, player.Hand, g.LeadSuit, g.CurrentTrick) {
			require.NoError(t, sess.PlayCard(player.UserID, c))
			return
		}
	}
	t.Fatalf("player %d has no legal play", g.CurrentTurn)
}

func TestFullMatchPlaysToCompletion(t *testing.T) {
	sess, _, sender := newTestSession(t)
	fillRoom(t, sess)

	deadline := time.After(30 * time.Second)
	for {
		g := sess.Snapshot()
		if g.Status == StatusFinished {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("match did not finish; round=%d trick=%d", g.Round, len(g.CurrentTrick))
		default:
		}

		if len(g.CurrentTrick) == 4 {
			// Wait for the settle timer to clear the table.
			require.Eventually(t, func() bool {
				snap := sess.Snapshot()
				return len(snap.CurrentTrick) < 4 || snap.Status == StatusFinished
			}, time.Second, time.Millisecond)
			continue
		}
		autoplay(t, sess)
	}

	g := sess.Snapshot()
	assert.Equal(t, StatusFinished, g.Status)
	assert.Equal(t, MatchRounds+1, g.Round)

	total := 0
	for _, score := range g.Scores {
		total += score
	}
	assert.Equal(t, MatchRounds*shared.HandSize, total, "every round distributes exactly 13 tricks")

	for _, p := range g.Players {
		assert.Empty(t, p.Hand, "all cards played out")
	}

	err := sess.PlayCard("user-a", mustCard(t, "2C"))
	assert.ErrorIs(t, err, ErrNotPlayingPhase, "finished room accepts no further plays")

	assert.True(t, sender.hasEvent(protocol.EventNewRound))
	assert.True(t, sender.hasEvent(protocol.EventGameFinished))
}
