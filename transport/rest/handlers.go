package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/metrics"
)

const maxLimit = 100

var ErrInvalidLimit = errors.New("limit must be an integer between 1 and 100")

type statsSource interface {
	Stats() metrics.Snapshot
}

type rankingReader interface {
	TopRankings(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type historyReader interface {
	ListHistory(ctx context.Context, limit int) ([]entity.MatchSummary, error)
}

type matchReader interface {
	GetByID(ctx context.Context, id string) (*entity.Match, error)
}

type OpsHandler interface {
	Ping(ctx echo.Context) error
	Health(ctx echo.Context) error
	Leaderboard(ctx echo.Context) error
	History(ctx echo.Context) error
	Match(ctx echo.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
	metrics.Snapshot
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type opsHandler struct {
	logger *slog.Logger

	stats    statsSource
	rankings rankingReader
	history  historyReader
	matches  matchReader

	defaultLimit int
}

func NewOps(
	logger *slog.Logger,
	stats statsSource,
	rankings rankingReader,
	history historyReader,
	matches matchReader,
	defaultLimit int,
) OpsHandler {
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	return &opsHandler{
		logger:       logger.With("component", "rest"),
		stats:        stats,
		rankings:     rankings,
		history:      history,
		matches:      matches,
		defaultLimit: defaultLimit,
	}
}

func (that *opsHandler) Ping(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "pong")
}

func (that *opsHandler) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Snapshot: that.stats.Stats(),
	})
}

func (that *opsHandler) Leaderboard(ctx echo.Context) error {
	log := that.logger.With("method", "Leaderboard")

	limit, err := that.limit(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	entries, err := that.rankings.TopRankings(ctx.Request().Context(), limit)
	if err != nil {
		log.Error("failed to get rankings", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
	}

	return ctx.JSON(http.StatusOK, entity.LeaderboardData{Entries: entries})
}

func (that *opsHandler) History(ctx echo.Context) error {
	log := that.logger.With("method", "History")

	limit, err := that.limit(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	summaries, err := that.history.ListHistory(ctx.Request().Context(), limit)
	if err != nil {
		log.Error("failed to get history", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
	}

	return ctx.JSON(http.StatusOK, summaries)
}

func (that *opsHandler) Match(ctx echo.Context) error {
	log := that.logger.With("method", "Match")

	match, err := that.matches.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if errors.Is(err, apperror.ErrMatchNotFound) {
		return ctx.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	}

	if err != nil {
		log.Error("failed to get match", "error", err)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
	}

	return ctx.JSON(http.StatusOK, match)
}

func (that *opsHandler) limit(ctx echo.Context) (int, error) {
	raw := ctx.QueryParam("limit")
	if raw == "" {
		return that.defaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, raw)
	}

	return limit, nil
}
