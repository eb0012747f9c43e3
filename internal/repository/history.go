package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type HistoryRepository interface {
	AppendHistory(ctx context.Context, summary entity.MatchSummary) error
	ListHistory(ctx context.Context, limit int) ([]entity.MatchSummary, error)
}

type dbHistory struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) HistoryRepository {
	return &dbHistory{
		db: db,
	}
}

func (that *dbHistory) AppendHistory(ctx context.Context, summary entity.MatchSummary) error {
	board, err := json.Marshal(summary.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	finishedAt := summary.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	query := `INSERT INTO game_history
		(match_id, player1_username, player2_username, winner, board, moves_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = that.db.ExecContext(ctx, query,
		summary.MatchID, summary.PlayerX, summary.PlayerO, string(summary.Outcome),
		string(board), summary.MoveCount, finishedAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

// ListHistory returns the most recent summaries first.
func (that *dbHistory) ListHistory(ctx context.Context, limit int) ([]entity.MatchSummary, error) {
	query := `SELECT match_id, player1_username, player2_username, winner, board, moves_count, created_at
		FROM game_history
		ORDER BY id DESC
		LIMIT ?`

	rows, err := that.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	summaries := []entity.MatchSummary{}
	for rows.Next() {
		var (
			summary    entity.MatchSummary
			outcome    string
			board      string
			finishedAt int64
		)

		err = rows.Scan(&summary.MatchID, &summary.PlayerX, &summary.PlayerO, &outcome, &board, &summary.MoveCount, &finishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}

		if err = json.Unmarshal([]byte(board), &summary.Board); err != nil {
			return nil, fmt.Errorf("failed to unmarshal board: %w", err)
		}

		summary.Outcome = entity.Outcome(outcome)
		summary.FinishedAt = time.Unix(finishedAt, 0).UTC()
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return summaries, nil
}
