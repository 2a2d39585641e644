package server

import (
	"encoding/json"

	"whist-game/internal/auth"
	"whist-game/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client represents a single WebSocket connection with its verified identity.
// The send channel is never closed; the hub signals teardown by closing done,
// so a broadcast racing a disconnect can never send on a closed channel.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{} // closed by the hub on unregister
	ID       string        // unique connection ID
	Identity auth.Identity
}

// ReadPump consumes inbound frames and dispatches intents. Each intent is
// handled to completion before the next frame is read, so one connection's
// intents are applied in the order they were sent.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Str("client", c.ID).Err(err).Msg("unexpected close")
			}
			break
		}

		var msg protocol.Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Warn().Str("client", c.ID).Err(err).Msg("malformed message")
			continue
		}

		c.hub.handleIntent(c, msg)
	}
}

// WritePump forwards queued messages to the WebSocket connection until the
// hub signals teardown.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case message := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Str("client", c.ID).Err(err).Msg("write failed")
				return
			}
		case <-c.done:
			return
		}
	}
}
