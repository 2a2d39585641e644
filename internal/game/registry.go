package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"whist-game/internal/auth"
	"whist-game/internal/protocol"
	"whist-game/internal/shared"

	"github.com/rs/zerolog/log"
)

const roomCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Options configures room behavior.
type Options struct {
	CodeLength  int           // length of generated room codes
	SettleDelay time.Duration // pause between trick_complete and next_trick
}

// Registry is the authoritative in-process cache of live sessions keyed by
// room code, backed by the durable store for recovery and discovery. The
// cache is the write-path source of truth for a live room; the store is
// consulted only on a cache miss (read-through), e.g. after a restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	reserved map[string]bool // codes mid-creation, not yet in sessions
	store    Store
	sender   Sender
	opts     Options
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store Store, opts Options) *Registry {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 3 * time.Second
	}
	return &Registry{
		sessions: make(map[string]*Session),
		reserved: make(map[string]bool),
		store:    store,
		opts:     opts,
	}
}

// SetSender installs the broadcast collaborator. Must be called during
// wiring, before any room is created.
func (r *Registry) SetSender(s Sender) {
	r.sender = s
}

// CreateRoom allocates a fresh room code and creates a waiting room with the
// caller seated at position 0. Codes are regenerated until they collide with
// neither the cache nor the store.
func (r *Registry) CreateRoom(id auth.Identity) (*Session, error) {
	for {
		code := randomRoomCode(r.opts.CodeLength)
		sess, err := r.create(code, id)
		if errors.Is(err, ErrDuplicateRoom) {
			log.Debug().Str("code", code).Msg("room code collision, regenerating")
			continue
		}
		return sess, err
	}
}

// create registers a room under an explicit code, failing on collision. The
// code is reserved in the cache first so the registry lock is never held
// across a store round-trip; a slow store write stalls only this creation,
// never lookups of other rooms.
func (r *Registry) create(code string, id auth.Identity) (*Session, error) {
	r.mu.Lock()
	if _, ok := r.sessions[code]; ok || r.reserved[code] {
		r.mu.Unlock()
		return nil, ErrDuplicateRoom
	}
	r.reserved[code] = true
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		delete(r.reserved, code)
		r.mu.Unlock()
	}

	if _, found, err := r.store.FindByRoomCode(code); err != nil {
		release()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	} else if found {
		release()
		return nil, ErrDuplicateRoom
	}

	g := NewGame(code, shared.NewPlayer(id.UserID, id.Name, 0))
	if err := r.store.Save(g); err != nil {
		release()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	sess := NewSession(g, r.store, r.sender, r.opts.SettleDelay)
	r.mu.Lock()
	r.sessions[code] = sess
	delete(r.reserved, code)
	r.mu.Unlock()
	log.Info().Str("room", code).Str("user", id.UserID).Msg("room created")
	return sess, nil
}

// Get looks a room up by code, reading through to the store on a cache miss
// and repopulating the cache from the durable record. Codes are
// case-insensitive on input.
func (r *Registry) Get(code string) (*Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.RLock()
	sess, ok := r.sessions[code]
	r.mu.RUnlock()
	if ok {
		return sess, nil
	}

	g, found, err := r.store.FindByRoomCode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !found {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[code]; ok {
		return sess, nil
	}
	if r.reserved[code] {
		// Creation in flight; the creator's insert owns the code.
		return nil, ErrRoomNotFound
	}
	sess = NewSession(g, r.store, r.sender, r.opts.SettleDelay)
	r.sessions[code] = sess
	log.Info().Str("room", code).Msg("room restored from store")
	return sess, nil
}

// ListWaiting returns discovery summaries for rooms still gathering players.
func (r *Registry) ListWaiting() ([]protocol.RoomSummary, error) {
	games, err := r.store.FindWaiting()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	summaries := make([]protocol.RoomSummary, 0, len(games))
	for _, g := range games {
		players := make([]protocol.PlayerInfo, len(g.Players))
		for i, p := range g.Players {
			players[i] = protocol.PlayerInfo{UserID: p.UserID, Name: p.Name, Position: p.Position}
		}
		summaries = append(summaries, protocol.RoomSummary{
			RoomCode:  g.RoomCode,
			Players:   players,
			CreatedAt: g.CreatedAt,
		})
	}
	return summaries, nil
}

// CloseAll tears down every live session, cancelling pending settle timers.
// Used on process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, sess := range r.sessions {
		sess.Close()
		delete(r.sessions, code)
	}
}

func randomRoomCode(length int) string {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		sb.WriteByte(roomCodeLetters[rand.IntN(len(roomCodeLetters))])
	}
	return sb.String()
}
