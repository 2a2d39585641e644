package protocol

import (
	"encoding/json"
	"time"

	"whist-game/internal/shared"
)

// MsgType tags every message on the wire. Intents flow client to server,
// events flow server to client. The hub dispatches intents with an
// exhaustive switch over these constants, never raw strings.
type MsgType string

// Intents (client -> server).
const (
	IntentCreateRoom MsgType = "create_room"
	IntentJoinRoom   MsgType = "join_room"
	IntentGetRooms   MsgType = "get_rooms"
	IntentPlayCard   MsgType = "play_card"
	IntentPing       MsgType = "ping"
)

// Events (server -> client).
const (
	EventRoomCreated   MsgType = "room_created"
	EventRoomJoined    MsgType = "room_joined"
	EventRoomsList     MsgType = "rooms_list"
	EventPlayerJoined  MsgType = "player_joined"
	EventGameStarted   MsgType = "game_started"
	EventCardPlayed    MsgType = "card_played"
	EventTrickComplete MsgType = "trick_complete"
	EventNextTrick     MsgType = "next_trick"
	EventNewRound      MsgType = "new_round"
	EventGameFinished  MsgType = "game_finished"
	EventError         MsgType = "error"
	EventPong          MsgType = "pong"
)

// Message is the envelope for every WebSocket frame.
type Message struct {
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client -> Server payloads ---

type JoinRoomPayload struct {
	RoomCode string `json:"roomCode"`
}

type PlayCardPayload struct {
	RoomCode string `json:"roomCode"`
	Card     string `json:"card"` // short code, e.g. "AH" or "10S"
}

// --- Server -> Client payloads ---

// PlayerInfo is the public view of a seated player.
type PlayerInfo struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// RoomSummary describes a joinable room for discovery.
type RoomSummary struct {
	RoomCode  string       `json:"roomCode"`
	Players   []PlayerInfo `json:"players"`
	CreatedAt time.Time    `json:"createdAt"`
}

type RoomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
	Game     any    `json:"game"`
}

// GamePayload carries a full (redacted) game snapshot. Events broadcast the
// whole state rather than diffs.
type GamePayload struct {
	Game any `json:"game"`
}

type TrickCompletePayload struct {
	Trick  shared.Trick `json:"trick"`
	Winner int          `json:"winner"`
	Game   any          `json:"game"`
}

type RoomsListPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewMessage marshals a payload into a wire-ready message.
func NewMessage(msgType MsgType, payload any) ([]byte, error) {
	msg := Message{Type: msgType}
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = payloadBytes
	}
	return json.Marshal(msg)
}
