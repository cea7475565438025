package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	Connection *sql.DB
}

// New - opens the shared database file. WAL and a busy timeout are required
// because the HTTP process and the agent process open the same file.
func New(path string) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

// Init - creates the schema if it does not exist yet. Safe to call from every
// process on startup.
func (that *Storage) Init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			human_player TEXT NOT NULL,
			agent_player TEXT NOT NULL,
			current_turn TEXT NOT NULL,
			status TEXT NOT NULL,
			winner TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS moves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			player TEXT NOT NULL,
			row INTEGER NOT NULL,
			col INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			origin TEXT NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games(id)
		)`,
		`CREATE TABLE IF NOT EXISTS taunts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			message TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			origin TEXT NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games(id)
		)`,
		`CREATE TABLE IF NOT EXISTS active_game (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			game_id TEXT NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games(id)
		)`,
	}

	for _, query := range queries {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *Storage) Close() error {
	if err := that.Connection.Close(); err != nil {
		return fmt.Errorf("can't close database: %w", err)
	}

	return nil
}
