package server

import (
	"net/http"

	"whist-game/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; the token check below gates access.
		return true
	},
}

// ServeWS verifies the caller's token and upgrades the connection. The
// engine only ever sees the verified identity, never the credential.
func ServeWS(hub *Hub, verifier auth.Verifier, w http.ResponseWriter, r *http.Request) {
	identity, err := verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		ID:       uuid.NewString(),
		Identity: identity,
	}
	hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
