package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/metrics"
)

var errDatabaseDown = errors.New("database down")

type fakeStore struct {
	limits []int
	err    error
}

func (that *fakeStore) Stats() metrics.Snapshot {
	return metrics.Snapshot{Sessions: 3, Matches: 1, QueueDepth: 1}
}

func (that *fakeStore) TopRankings(_ context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	that.limits = append(that.limits, limit)
	return []entity.LeaderboardEntry{{Username: "alice", Wins: 2, Losses: 1, Rank: 1}}, that.err
}

func (that *fakeStore) ListHistory(_ context.Context, limit int) ([]entity.MatchSummary, error) {
	that.limits = append(that.limits, limit)
	return []entity.MatchSummary{{MatchID: "m1", PlayerX: "alice", PlayerO: "bob", Outcome: entity.OutcomeDraw}}, that.err
}

func (that *fakeStore) GetByID(_ context.Context, id string) (*entity.Match, error) {
	if id != "m1" {
		return nil, apperror.ErrMatchNotFound
	}

	return entity.NewMatch("m1", entity.Participant{ID: "a", Name: "alice"}, entity.Participant{ID: "b", Name: "bob"}), that.err
}

func newTestServer(t *testing.T, store *fakeStore) http.Handler {
	t.Helper()

	registry := prometheus.NewRegistry()
	recorder, err := metrics.New(registry)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ops := NewOps(logger, store, store, store, store, 50)

	return NewServer(logger, ops, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), recorder).Handler()
}

func get(handler http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec
}

func TestServer_Ping(t *testing.T) {
	rec := get(newTestServer(t, &fakeStore{}), "/ping")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	rec := get(newTestServer(t, &fakeStore{}), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","players":3,"matches":1,"queue":1}`, rec.Body.String())
}

func TestServer_Leaderboard(t *testing.T) {
	t.Run("Default limit", func(t *testing.T) {
		// Given: a store with one ranked player
		store := &fakeStore{}
		handler := newTestServer(t, store)

		// When: the leaderboard is requested without a limit
		rec := get(handler, "/api/leaderboard")

		// Then: the configured default is used
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"entries":[{"username":"alice","wins":2,"losses":1,"rank":1}]}`, rec.Body.String())
		assert.Equal(t, []int{50}, store.limits)
	})

	t.Run("Explicit limit", func(t *testing.T) {
		store := &fakeStore{}

		rec := get(newTestServer(t, store), "/api/leaderboard?limit=5")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []int{5}, store.limits)
	})

	t.Run("Invalid limit", func(t *testing.T) {
		store := &fakeStore{}
		handler := newTestServer(t, store)

		for _, limit := range []string{"0", "101", "ten"} {
			rec := get(handler, "/api/leaderboard?limit="+limit)

			assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
		}
		assert.Empty(t, store.limits)
	})

	t.Run("Store failure", func(t *testing.T) {
		rec := get(newTestServer(t, &fakeStore{err: errDatabaseDown}), "/api/leaderboard")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "database down")
	})
}

func TestServer_History(t *testing.T) {
	store := &fakeStore{}

	rec := get(newTestServer(t, store), "/api/history?limit=10")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"matchId":"m1"`)
	assert.Contains(t, rec.Body.String(), `"winner":"draw"`)
	assert.Equal(t, []int{10}, store.limits)
}

func TestServer_Match(t *testing.T) {
	handler := newTestServer(t, &fakeStore{})

	t.Run("Mirrored match", func(t *testing.T) {
		rec := get(handler, "/api/matches/m1")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"m1"`)
		assert.Contains(t, rec.Body.String(), `"board":[null,null,null,null,null,null,null,null,null]`)
	})

	t.Run("Unknown match", func(t *testing.T) {
		rec := get(handler, "/api/matches/nope")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	// Given: a request has been served
	handler := newTestServer(t, &fakeStore{})
	get(handler, "/ping")

	// When: the metrics endpoint is scraped
	rec := get(handler, "/metrics")

	// Then: the request counter is exported
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `arena_http_requests_total{method="GET",path="/ping",status="200"} 1`)
}
