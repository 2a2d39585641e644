package server

import (
	"encoding/json"
	"net/http"

	"whist-game/internal/auth"
	"whist-game/internal/game"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter wires the WebSocket endpoint and the plain-HTTP discovery
// endpoints. Room discovery is also available over HTTP so lobby UIs can
// poll without holding a socket open.
func NewRouter(hub *Hub, registry *game.Registry, verifier auth.Verifier) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	r.Get("/api/rooms", func(w http.ResponseWriter, req *http.Request) {
		rooms, err := registry.ListWaiting()
		if err != nil {
			log.Error().Err(err).Msg("list rooms")
			http.Error(w, "failed to list rooms", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rooms)
	})

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		ServeWS(hub, verifier, w, req)
	})

	return r
}
