package game

import (
	"fmt"
	"sync"
	"time"

	"whist-game/internal/auth"
	"whist-game/internal/protocol"
	"whist-game/internal/shared"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session is the serialization domain for one room. All mutation of the
// room's game state happens under its mutex, so plays within a room are
// applied strictly in the order received while separate rooms never block
// one another.
//
// Every state-changing operation is written through to the store before any
// broadcast goes out; if the write fails the in-memory state is rolled back
// to the pre-mutation snapshot.
type Session struct {
	mu          sync.Mutex
	game        *Game
	store       Store
	sender      Sender
	settleDelay time.Duration
	settleTimer *time.Timer
	closed      bool
	logger      zerolog.Logger
}

// NewSession wraps a game in its serialization domain.
//
// The store legitimately holds a full trick between trick completion and
// settlement, so a game restored in that window still owes the table its
// resolution; the settle timer is re-armed here.
func NewSession(g *Game, store Store, sender Sender, settleDelay time.Duration) *Session {
	s := &Session{
		game:        g,
		store:       store,
		sender:      sender,
		settleDelay: settleDelay,
		logger:      log.With().Str("room", g.RoomCode).Logger(),
	}
	if g.Status == StatusPlaying && len(g.CurrentTrick) == 4 {
		s.scheduleSettle()
	}
	return s
}

// RoomCode returns the session's room code.
func (s *Session) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.RoomCode
}

// Snapshot returns a deep copy of the current game state.
func (s *Session) Snapshot() *Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Clone()
}

// SnapshotFor returns the game state as seen by one player: their own hand
// in full, everyone else's as a count.
func (s *Session) SnapshotFor(userID string) *Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.RedactFor(userID)
}

// Join seats a new player, or recognizes a returning one.
//
// A caller already seated is a rejoin: no state changes and rejoined is true;
// the hub re-subscribes the connection and replays the current state. A new
// player is appended at the next position; the fourth join starts the game.
func (s *Session) Join(id auth.Identity) (rejoined bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.game.PlayerByID(id.UserID); ok {
		return true, nil
	}
	if len(s.game.Players) >= 4 {
		return false, ErrRoomFull
	}
	if s.game.Status != StatusWaiting {
		return false, ErrGameAlreadyStarted
	}

	prev := s.game.Clone()
	player := shared.NewPlayer(id.UserID, id.Name, len(s.game.Players))
	s.game.Players = append(s.game.Players, player)

	started := false
	if len(s.game.Players) == 4 {
		s.game.Status = StatusPlaying
		if err := s.dealRound(); err != nil {
			s.game = prev
			return false, err
		}
		started = true
	}

	if err := s.persist(prev); err != nil {
		return false, err
	}

	s.logger.Info().Str("user", id.UserID).Int("position", player.Position).Msg("player joined")
	s.broadcastGame(protocol.EventPlayerJoined)
	if started {
		s.logger.Info().Str("trump", string(s.game.TrumpSuit)).Int("dealer", s.game.Dealer).Msg("game started")
		s.broadcastGame(protocol.EventGameStarted)
	}
	return false, nil
}

// PlayCard applies one play for the identified player.
func (s *Session) PlayCard(userID string, card shared.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.game.PlayerByID(userID)
	if !ok {
		return ErrNotInGame
	}
	if s.game.Status != StatusPlaying {
		return ErrNotPlayingPhase
	}
	if len(s.game.CurrentTrick) >= 4 {
		// A full trick must settle before any further play.
		return ErrNotYourTurn
	}
	if player.Position != s.game.CurrentTurn {
		return ErrNotYourTurn
	}
	if !shared.IsLegalPlay(card, player.Hand, s.game.LeadSuit, s.game.CurrentTrick) {
		return ErrIllegalPlay
	}

	prev := s.game.Clone()

	if len(s.game.CurrentTrick) == 0 {
		s.game.LeadSuit = card.Suit
	}
	s.game.CurrentTrick = append(s.game.CurrentTrick, shared.PlayedCard{Position: player.Position, Card: card})
	player.RemoveCard(card)

	if len(s.game.CurrentTrick) == 4 {
		winner := s.game.CurrentTrick.Winner(s.game.TrumpSuit, s.game.LeadSuit)
		winnerPlayer := s.game.Players[winner]
		winnerPlayer.TricksWon++

		if err := s.persist(prev); err != nil {
			return err
		}

		s.logger.Info().Str("user", userID).Stringer("card", card).Int("winner", winner).Msg("trick complete")
		trick := s.game.CurrentTrick.Clone()
		snap := s.game.Clone()
		s.sender.ToRoom(s.game.RoomCode, func(uid string) []byte {
			msg, err := protocol.NewMessage(protocol.EventTrickComplete, protocol.TrickCompletePayload{
				Trick:  trick,
				Winner: winner,
				Game:   snap.RedactFor(uid),
			})
			if err != nil {
				return nil
			}
			return msg
		})

		// Presentation pause before the table clears. The timer is tracked so
		// room teardown can abandon it without double-resolving the round.
		s.scheduleSettle()
		return nil
	}

	s.game.CurrentTurn = (s.game.CurrentTurn + 1) % 4
	if err := s.persist(prev); err != nil {
		return err
	}

	s.logger.Debug().Str("user", userID).Stringer("card", card).Int("turn", s.game.CurrentTurn).Msg("card played")
	s.broadcastGame(protocol.EventCardPlayed)
	return nil
}

// scheduleSettle arms the settle timer for the full trick on the table,
// recomputing the winner from the trick itself. Assumes the lock is held, or
// that the session is not yet shared.
func (s *Session) scheduleSettle() {
	winner := s.game.CurrentTrick.Winner(s.game.TrumpSuit, s.game.LeadSuit)
	s.settleTimer = time.AfterFunc(s.settleDelay, func() {
		s.settleTrick(winner)
	})
}

// settleTrick runs after the settle delay: it clears the resolved trick,
// hands the lead to the winner, and moves to the next trick or round.
func (s *Session) settleTrick(winner int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settleTimer = nil
	if s.closed || s.game.Status != StatusPlaying || len(s.game.CurrentTrick) != 4 {
		return
	}

	prev := s.game.Clone()
	s.game.CurrentTrick = shared.Trick{}
	s.game.LeadSuit = ""
	s.game.CurrentTurn = winner

	if len(s.game.Players[winner].Hand) == 0 {
		if err := s.endRound(prev); err != nil {
			// The rollback restored the full trick; retry so the room
			// cannot wedge behind a transient store failure.
			s.logger.Error().Err(err).Msg("end round failed, settle rescheduled")
			s.scheduleSettle()
		}
		return
	}

	if err := s.persist(prev); err != nil {
		s.logger.Error().Err(err).Msg("settle persist failed, settle rescheduled")
		s.scheduleSettle()
		return
	}
	s.broadcastGame(protocol.EventNextTrick)
}

// endRound folds each player's tricks into the cumulative score and either
// deals the next round or finishes the match. Assumes the lock is held.
func (s *Session) endRound(prev *Game) error {
	g := s.game
	for _, p := range g.Players {
		g.Scores[p.Position] += p.TricksWon
	}
	g.Round++

	if g.Round > MatchRounds {
		g.Status = StatusFinished
		if err := s.persist(prev); err != nil {
			return err
		}
		s.logger.Info().Interface("scores", g.Scores).Msg("game finished")
		s.broadcastGame(protocol.EventGameFinished)
		return nil
	}

	g.Dealer = (g.Dealer + 1) % 4
	for _, p := range g.Players {
		p.TricksWon = 0
	}
	if err := s.dealRound(); err != nil {
		s.game = prev
		return err
	}
	if err := s.persist(prev); err != nil {
		return err
	}
	s.logger.Info().Int("round", g.Round).Int("dealer", g.Dealer).Str("trump", string(g.TrumpSuit)).Msg("new round")
	s.broadcastGame(protocol.EventNewRound)
	return nil
}

// dealRound deals fresh hands and derives trump from the dealer's sorted
// hand: its last card after display sorting sets the suit. The player left
// of the dealer leads. Assumes the lock is held.
func (s *Session) dealRound() error {
	g := s.game
	hands, err := shared.Deal(shared.NewShuffledDeck())
	if err != nil {
		return fmt.Errorf("deal round %d: %w", g.Round, err)
	}
	for _, p := range g.Players {
		p.Hand = shared.SortForDisplay(hands[p.Position])
	}
	dealerHand := g.Players[g.Dealer].Hand
	g.TrumpSuit = dealerHand[len(dealerHand)-1].Suit
	g.CurrentTrick = shared.Trick{}
	g.LeadSuit = ""
	g.CurrentTurn = (g.Dealer + 1) % 4
	return nil
}

// persist writes the game through to the store. On failure the in-memory
// state is restored from prev so the cache never runs ahead of the store.
// Assumes the lock is held.
func (s *Session) persist(prev *Game) error {
	s.game.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(s.game); err != nil {
		s.game = prev
		s.logger.Error().Err(err).Msg("write-through failed, state rolled back")
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// broadcastGame sends a full-snapshot event to every client in the room,
// rendered per recipient. Assumes the lock is held.
func (s *Session) broadcastGame(event protocol.MsgType) {
	snap := s.game.Clone()
	s.sender.ToRoom(s.game.RoomCode, func(uid string) []byte {
		msg, err := protocol.NewMessage(event, protocol.GamePayload{Game: snap.RedactFor(uid)})
		if err != nil {
			return nil
		}
		return msg
	})
}

// Close tears the session down, abandoning any pending settle timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
}
