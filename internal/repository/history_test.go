package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
)

func TestHistoryRepository(t *testing.T) {
	t.Run("Summaries are listed newest first", func(t *testing.T) {
		// Given: two finished matches
		ctx, st := suite.NewSQLite(t)
		historyRepo := NewHistoryRepository(st.Connection)

		x, o := entity.PlayerX, entity.PlayerO
		first := entity.MatchSummary{
			MatchID:    "m1",
			PlayerX:    "alice",
			PlayerO:    "bob",
			Outcome:    entity.OutcomeX,
			Board:      entity.Board{x, x, x, o, o},
			MoveCount:  5,
			FinishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}
		second := entity.MatchSummary{
			MatchID:    "m2",
			PlayerX:    "bob",
			PlayerO:    "alice",
			Outcome:    entity.OutcomeDraw,
			Board:      entity.Board{x, o, x, x, o, o, o, x, x},
			MoveCount:  9,
			FinishedAt: time.Date(2024, 5, 1, 12, 5, 0, 0, time.UTC),
		}

		// When: they are appended and listed
		require.NoError(t, historyRepo.AppendHistory(ctx, first))
		require.NoError(t, historyRepo.AppendHistory(ctx, second))

		summaries, err := historyRepo.ListHistory(ctx, 10)

		// Then: the latest comes first and every field survives the round trip
		require.NoError(t, err)
		assert.Equal(t, []entity.MatchSummary{second, first}, summaries)
	})

	t.Run("Board is stored as a JSON array with nulls", func(t *testing.T) {
		ctx, st := suite.NewSQLite(t)
		historyRepo := NewHistoryRepository(st.Connection)

		require.NoError(t, historyRepo.AppendHistory(ctx, entity.MatchSummary{
			MatchID: "m1",
			Outcome: entity.OutcomeX,
			Board:   entity.Board{entity.PlayerX},
		}))

		var board string
		require.NoError(t, st.Connection.QueryRowContext(ctx, `SELECT board FROM game_history`).Scan(&board))
		assert.JSONEq(t, `["X",null,null,null,null,null,null,null,null]`, board)
	})

	t.Run("Limit caps the list", func(t *testing.T) {
		ctx, st := suite.NewSQLite(t)
		historyRepo := NewHistoryRepository(st.Connection)

		for _, id := range []string{"m1", "m2", "m3"} {
			require.NoError(t, historyRepo.AppendHistory(ctx, entity.MatchSummary{MatchID: id, Outcome: entity.OutcomeDraw}))
		}

		summaries, err := historyRepo.ListHistory(ctx, 2)

		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "m3", summaries[0].MatchID)
	})
}
