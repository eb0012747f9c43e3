package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		username     TEXT    NOT NULL UNIQUE,
		wins         INTEGER NOT NULL DEFAULT 0,
		losses       INTEGER NOT NULL DEFAULT 0,
		draws        INTEGER NOT NULL DEFAULT 0,
		games_played INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL,
		last_active  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_players_ranking ON players (wins DESC, losses ASC, games_played DESC)`,
	`CREATE TABLE IF NOT EXISTS game_history (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id         TEXT    NOT NULL,
		player1_username TEXT    NOT NULL,
		player2_username TEXT    NOT NULL,
		winner           TEXT    NOT NULL,
		board            TEXT    NOT NULL,
		moves_count      INTEGER NOT NULL,
		created_at       INTEGER NOT NULL
	)`,
}

type Storage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*Storage, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	// a single writer keeps concurrent result updates from hitting SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	for _, query := range schema {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create schema: %w", err)
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
