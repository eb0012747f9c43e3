package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var ErrInvalidResult = errors.New("invalid match result")

type PlayerRepository interface {
	EnsurePlayer(ctx context.Context, username string) error
	RecordResult(ctx context.Context, username string, result entity.Result) error
	TopRankings(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
	GetByUsername(ctx context.Context, username string) (*entity.Player, error)
}

type dbPlayer struct {
	db *sql.DB
}

func NewPlayerRepository(db *sql.DB) PlayerRepository {
	return &dbPlayer{
		db: db,
	}
}

func (that *dbPlayer) EnsurePlayer(ctx context.Context, username string) error {
	query := `INSERT INTO players (username, created_at, last_active) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET last_active = excluded.last_active`

	now := time.Now().UTC().Unix()
	if _, err := that.db.ExecContext(ctx, query, username, now, now); err != nil {
		return fmt.Errorf("failed to ensure player: %w", err)
	}

	return nil
}

// RecordResult bumps the counter for result and games_played, creating the player if needed.
func (that *dbPlayer) RecordResult(ctx context.Context, username string, result entity.Result) error {
	var wins, losses, draws int

	switch result {
	case entity.ResultWin:
		wins = 1
	case entity.ResultLoss:
		losses = 1
	case entity.ResultDraw:
		draws = 1
	default:
		return fmt.Errorf("%w: %q", ErrInvalidResult, result)
	}

	query := `INSERT INTO players (username, wins, losses, draws, games_played, created_at, last_active)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			wins = wins + excluded.wins,
			losses = losses + excluded.losses,
			draws = draws + excluded.draws,
			games_played = games_played + 1,
			last_active = excluded.last_active`

	now := time.Now().UTC().Unix()
	if _, err := that.db.ExecContext(ctx, query, username, wins, losses, draws, now, now); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	return nil
}

func (that *dbPlayer) TopRankings(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	query := `SELECT username, wins, losses,
			ROW_NUMBER() OVER (ORDER BY wins DESC, losses ASC, games_played DESC, username ASC) AS position
		FROM players
		WHERE games_played > 0
		ORDER BY position
		LIMIT ?`

	rows, err := that.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	entries := []entity.LeaderboardEntry{}
	for rows.Next() {
		var entry entity.LeaderboardEntry
		if err = rows.Scan(&entry.Username, &entry.Wins, &entry.Losses, &entry.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rankings: %w", err)
	}

	return entries, nil
}

func (that *dbPlayer) GetByUsername(ctx context.Context, username string) (*entity.Player, error) {
	query := `SELECT username, wins, losses, draws, games_played, created_at, last_active
		FROM players WHERE username = ?`

	var (
		player     entity.Player
		createdAt  int64
		lastActive int64
	)

	err := that.db.QueryRowContext(ctx, query, username).Scan(
		&player.Username, &player.Wins, &player.Losses, &player.Draws, &player.GamesPlayed, &createdAt, &lastActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by username: %w", err)
	}

	player.CreatedAt = time.Unix(createdAt, 0).UTC()
	player.LastActive = time.Unix(lastActive, 0).UTC()

	return &player, nil
}
