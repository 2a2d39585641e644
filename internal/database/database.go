package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"whist-game/internal/game"

	_ "github.com/mattn/go-sqlite3"
)

// Service is the durable record store for game rooms. Each room is one row
// keyed by room code, with the full game snapshot stored as a JSON document;
// the status lives in its own column so waiting rooms can be queried without
// unmarshalling every row.
type Service struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `
create table if not exists games (
	room_code text not null primary key,
	status text not null,
	state text not null,
	created_at text not null,
	updated_at text not null
);
create index if not exists idx_games_status on games(status);
`

// New opens (creating if missing) the SQLite database at path and ensures
// the schema exists. WAL journaling and a busy timeout keep concurrent room
// writes from tripping over each other.
func New(path string) (*Service, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Service) Close() error {
	return s.db.Close()
}

// Save upserts the full game state keyed by room code.
func (s *Service) Save(g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game %s: %w", g.RoomCode, err)
	}
	_, err = s.db.Exec(`
		insert into games (room_code, status, state, created_at, updated_at)
		values (?, ?, ?, ?, ?)
		on conflict(room_code) do update set
			status = excluded.status,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		g.RoomCode,
		string(g.Status),
		string(state),
		g.CreatedAt.Format(time.RFC3339Nano),
		g.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", g.RoomCode, err)
	}
	return nil
}

// FindByRoomCode loads a game by room code. Returns found=false when no
// record exists.
func (s *Service) FindByRoomCode(code string) (*game.Game, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state string
	err := s.db.QueryRow(`select state from games where room_code = ?`, code).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load game %s: %w", code, err)
	}

	var g game.Game
	if err := json.Unmarshal([]byte(state), &g); err != nil {
		return nil, false, fmt.Errorf("unmarshal game %s: %w", code, err)
	}
	return &g, true, nil
}

// FindWaiting lists games still waiting for players.
func (s *Service) FindWaiting() ([]*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`select state from games where status = ? order by created_at`, string(game.StatusWaiting))
	if err != nil {
		return nil, fmt.Errorf("list waiting games: %w", err)
	}
	defer rows.Close()

	var games []*game.Game
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, err
		}
		var g game.Game
		if err := json.Unmarshal([]byte(state), &g); err != nil {
			return nil, fmt.Errorf("unmarshal waiting game: %w", err)
		}
		games = append(games, &g)
	}
	return games, rows.Err()
}
