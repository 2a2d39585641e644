package server

import (
	"encoding/json"
	"errors"
	"sync"

	"whist-game/internal/game"
	"whist-game/internal/protocol"
	"whist-game/internal/shared"

	"github.com/rs/zerolog/log"
)

// Hub tracks live connections and their room subscriptions, and translates
// inbound intents into registry and session operations. It owns no game
// state: rejections from the engine are relayed to the initiating caller
// only, never broadcast.
type Hub struct {
	registry *game.Registry

	mu      sync.RWMutex
	clients map[*Client]bool
	byUser  map[string]*Client
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub over the room registry.
func NewHub(registry *game.Registry) *Hub {
	return &Hub{
		registry:   registry,
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]*Client),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes connection lifecycle events.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.byUser[client.Identity.UserID] = client
			h.mu.Unlock()
			log.Info().Str("client", client.ID).Str("user", client.Identity.UserID).Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if h.byUser[client.Identity.UserID] == client {
					delete(h.byUser, client.Identity.UserID)
				}
				for code, members := range h.rooms {
					delete(members, client)
					if len(members) == 0 {
						delete(h.rooms, code)
					}
				}
				close(client.done)
				log.Info().Str("client", client.ID).Str("user", client.Identity.UserID).Msg("client disconnected")
			}
			h.mu.Unlock()
		}
	}
}

// handleIntent dispatches one inbound intent. The switch is exhaustive over
// the closed intent set; anything else is rejected.
func (h *Hub) handleIntent(client *Client, msg protocol.Message) {
	switch msg.Type {
	case protocol.IntentCreateRoom:
		h.handleCreateRoom(client)
	case protocol.IntentJoinRoom:
		h.handleJoinRoom(client, msg)
	case protocol.IntentGetRooms:
		h.handleGetRooms(client)
	case protocol.IntentPlayCard:
		h.handlePlayCard(client, msg)
	case protocol.IntentPing:
		pong, _ := protocol.NewMessage(protocol.EventPong, nil)
		h.sendToClient(client, pong)
	default:
		log.Warn().Str("client", client.ID).Str("type", string(msg.Type)).Msg("unknown intent")
		h.sendError(client, "unknown message type")
	}
}

func (h *Hub) handleCreateRoom(client *Client) {
	sess, err := h.registry.CreateRoom(client.Identity)
	if err != nil {
		h.sendError(client, errorMessage(err))
		return
	}

	code := sess.RoomCode()
	h.subscribe(client, code)

	created, err := protocol.NewMessage(protocol.EventRoomCreated, protocol.RoomCreatedPayload{
		RoomCode: code,
		Game:     sess.SnapshotFor(client.Identity.UserID),
	})
	if err != nil {
		log.Error().Err(err).Msg("marshal room_created")
		return
	}
	h.sendToClient(client, created)
}

func (h *Hub) handleJoinRoom(client *Client, msg protocol.Message) {
	var payload protocol.JoinRoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.sendError(client, "invalid join_room payload")
		return
	}

	sess, err := h.registry.Get(payload.RoomCode)
	if err != nil {
		h.sendError(client, errorMessage(err))
		return
	}
	code := sess.RoomCode()

	// Subscribe before joining so the joiner receives the membership
	// broadcasts their own join triggers.
	h.subscribe(client, code)

	rejoined, err := sess.Join(client.Identity)
	if err != nil {
		h.unsubscribe(client, code)
		h.sendError(client, errorMessage(err))
		return
	}

	if rejoined {
		joined, err := protocol.NewMessage(protocol.EventRoomJoined, protocol.GamePayload{
			Game: sess.SnapshotFor(client.Identity.UserID),
		})
		if err != nil {
			log.Error().Err(err).Msg("marshal room_joined")
			return
		}
		h.sendToClient(client, joined)
	}
}

func (h *Hub) handleGetRooms(client *Client) {
	rooms, err := h.registry.ListWaiting()
	if err != nil {
		h.sendError(client, errorMessage(err))
		return
	}
	list, err := protocol.NewMessage(protocol.EventRoomsList, protocol.RoomsListPayload{Rooms: rooms})
	if err != nil {
		log.Error().Err(err).Msg("marshal rooms_list")
		return
	}
	h.sendToClient(client, list)
}

func (h *Hub) handlePlayCard(client *Client, msg protocol.Message) {
	var payload protocol.PlayCardPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.sendError(client, "invalid play_card payload")
		return
	}

	card, err := shared.ParseCard(payload.Card)
	if err != nil {
		h.sendError(client, errorMessage(game.ErrIllegalPlay))
		return
	}

	sess, err := h.registry.Get(payload.RoomCode)
	if err != nil {
		h.sendError(client, errorMessage(err))
		return
	}

	if err := sess.PlayCard(client.Identity.UserID, card); err != nil {
		h.sendError(client, errorMessage(err))
	}
}

// subscribe adds the client to a room's broadcast set.
func (h *Hub) subscribe(client *Client, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomCode]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[roomCode] = members
	}
	members[client] = true
}

func (h *Hub) unsubscribe(client *Client, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomCode]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomCode)
		}
	}
}

// ToRoom implements game.Sender: the message is rendered per recipient so
// each player only ever sees their own hand.
func (h *Hub) ToRoom(roomCode string, render game.RenderFunc) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[roomCode]))
	for c := range h.rooms[roomCode] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if msg := render(c.Identity.UserID); msg != nil {
			h.sendToClient(c, msg)
		}
	}
}

// ToUser implements game.Sender.
func (h *Hub) ToUser(userID string, message []byte) {
	h.mu.RLock()
	client, ok := h.byUser[userID]
	h.mu.RUnlock()
	if ok {
		h.sendToClient(client, message)
	}
}

// sendToClient queues a message without blocking; a client that cannot keep
// up is disconnected. A client already torn down is skipped, so broadcasts
// holding a member snapshot from before the disconnect are safe.
func (h *Hub) sendToClient(client *Client, message []byte) {
	select {
	case <-client.done:
	case client.send <- message:
	default:
		log.Warn().Str("client", client.ID).Msg("send buffer full, dropping client")
		go func() {
			h.mu.RLock()
			_, connected := h.clients[client]
			h.mu.RUnlock()
			if connected {
				h.unregister <- client
			}
		}()
	}
}

// sendError reports a rejection to the initiating caller only.
func (h *Hub) sendError(client *Client, message string) {
	msg, err := protocol.NewMessage(protocol.EventError, protocol.ErrorPayload{Message: message})
	if err != nil {
		log.Error().Err(err).Msg("marshal error event")
		return
	}
	h.sendToClient(client, msg)
}

// errorMessage maps engine errors to user-facing text. Persistence details
// stay in the logs.
func errorMessage(err error) string {
	if errors.Is(err, game.ErrPersistence) {
		return game.ErrPersistence.Error()
	}
	return err.Error()
}
