package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

const readTimeout = 2 * time.Second

type memorySink struct {
	mu      sync.Mutex
	results map[string][]entity.Result
	history []entity.MatchSummary
}

func (that *memorySink) EnsurePlayer(context.Context, string) error {
	return nil
}

func (that *memorySink) RecordResult(_ context.Context, username string, result entity.Result) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.results[username] = append(that.results[username], result)

	return nil
}

func (that *memorySink) TopRankings(context.Context, int) ([]entity.LeaderboardEntry, error) {
	return []entity.LeaderboardEntry{{Username: "alice", Wins: 1, Rank: 1}}, nil
}

func (that *memorySink) AppendHistory(_ context.Context, summary entity.MatchSummary) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.history = append(that.history, summary)

	return nil
}

type nopMirror struct{}

func (nopMirror) Save(entity.Match) {}
func (nopMirror) Delete(string)     {}

type inbound struct {
	Type    entity.EventType `json:"type"`
	Data    json.RawMessage  `json:"data"`
	Message string           `json:"message"`
}

func newTestServer(t *testing.T) (*httptest.Server, *memorySink) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	recorder, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	sink := &memorySink{results: make(map[string][]entity.Result)}
	manager := usecase.NewGameManager(
		logger, sink, sink,
		service.NewBotService(rand.New(rand.NewSource(1))), //nolint: gosec // deterministic tests
		nopMirror{}, recorder, usecase.Options{},
	)

	server := New(logger, manager, config.WebSocket{SendBuffer: 16, PingInterval: time.Minute, ReadLimit: 4096})
	httpServer := httptest.NewServer(server.Router())
	t.Cleanup(httpServer.Close)

	return httpServer, sink
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, kind string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Message{Type: kind, Data: raw}))
}

func read(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	var event inbound
	require.NoError(t, conn.ReadJSON(&event))

	return event
}

// readUntil skips events until one of kind arrives.
func readUntil(t *testing.T, conn *websocket.Conn, kind entity.EventType) inbound {
	t.Helper()

	for {
		if event := read(t, conn); event.Type == kind {
			return event
		}
	}
}

func login(t *testing.T, server *httptest.Server, username string) *websocket.Conn {
	t.Helper()

	conn := dial(t, server)
	send(t, conn, typeAuthenticate, AuthenticatePayload{Username: username})
	readUntil(t, conn, entity.EventLeaderboardUpdate)

	return conn
}

func move(t *testing.T, conn *websocket.Conn, matchID string, cell int) {
	t.Helper()

	send(t, conn, typeMakeMove, MakeMovePayload{MatchID: matchID, CellIndex: &cell})
}

func TestServer_FullMatch(t *testing.T) {
	// Given: alice and bob are connected and authenticated
	server, sink := newTestServer(t)
	alice := login(t, server, "alice")
	bob := login(t, server, "bob")

	// When: both queue
	send(t, alice, typeStartMatchmaking, nil)
	send(t, bob, typeStartMatchmaking, nil)

	var found entity.MatchFoundData
	require.NoError(t, json.Unmarshal(readUntil(t, alice, entity.EventMatchFound).Data, &found))
	readUntil(t, bob, entity.EventMatchFound)
	assert.Equal(t, entity.PlayerX, found.PlayerSymbol)

	// And: X takes the top row while O plays the middle row
	players := []*websocket.Conn{alice, bob, alice, bob, alice}
	for i, cell := range []int{0, 3, 1, 4, 2} {
		move(t, players[i], found.MatchID, cell)

		if i < 4 {
			readUntil(t, alice, entity.EventGameUpdate)
			readUntil(t, bob, entity.EventGameUpdate)
		}
	}

	// Then: both see X win, then the leaderboard
	for _, conn := range []*websocket.Conn{alice, bob} {
		var end entity.GameEndData
		require.NoError(t, json.Unmarshal(readUntil(t, conn, entity.EventGameEnd).Data, &end))
		assert.Equal(t, entity.OutcomeX, end.Winner)
		assert.Equal(t, entity.PlayerX, end.Board[2])

		readUntil(t, conn, entity.EventLeaderboardUpdate)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []entity.Result{entity.ResultWin}, sink.results["alice"])
	assert.Equal(t, []entity.Result{entity.ResultLoss}, sink.results["bob"])
	require.Len(t, sink.history, 1)
}

func TestServer_Errors(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("Malformed JSON is answered with an error", func(t *testing.T) {
		conn := dial(t, server)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

		event := read(t, conn)
		assert.Equal(t, entity.EventError, event.Type)
		assert.Equal(t, "invalid message format", event.Message)
	})

	t.Run("Unknown type is answered with an error", func(t *testing.T) {
		conn := dial(t, server)

		send(t, conn, "fly_to_moon", nil)

		event := read(t, conn)
		assert.Equal(t, entity.EventError, event.Type)
		assert.Contains(t, event.Message, "fly_to_moon")
	})

	t.Run("Move without a cell is an invalid payload", func(t *testing.T) {
		conn := login(t, server, "carol")

		send(t, conn, typeMakeMove, map[string]string{"matchId": "m1"})

		event := read(t, conn)
		assert.Equal(t, entity.EventError, event.Type)
		assert.Equal(t, ErrInvalidPayload.Error(), event.Message)
	})

	t.Run("Matchmaking before authenticating", func(t *testing.T) {
		conn := dial(t, server)

		send(t, conn, typeStartMatchmaking, nil)

		event := read(t, conn)
		assert.Equal(t, entity.EventError, event.Type)
		assert.Contains(t, event.Message, "not authenticated")
	})

	t.Run("Connection survives bad input", func(t *testing.T) {
		conn := dial(t, server)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("[]")))
		read(t, conn)

		send(t, conn, typeAuthenticate, AuthenticatePayload{Username: "dave"})

		assert.Equal(t, entity.EventLeaderboardUpdate, read(t, conn).Type)
	})
}

func TestServer_Disconnect(t *testing.T) {
	// Given: alice and bob are in a match
	server, _ := newTestServer(t)
	alice := login(t, server, "alice")
	bob := login(t, server, "bob")
	send(t, alice, typeStartMatchmaking, nil)
	send(t, bob, typeStartMatchmaking, nil)
	readUntil(t, alice, entity.EventMatchFound)
	readUntil(t, bob, entity.EventMatchFound)

	// When: bob's socket goes away
	require.NoError(t, bob.Close())

	// Then: alice is told
	assert.Equal(t, entity.EventOpponentDisconnected, readUntil(t, alice, entity.EventOpponentDisconnected).Type)
}

func TestServer_BotMatch(t *testing.T) {
	server, _ := newTestServer(t)
	alice := login(t, server, "alice")

	send(t, alice, typeStartBotMatch, StartBotMatchPayload{Difficulty: "hard"})

	var found entity.MatchFoundData
	require.NoError(t, json.Unmarshal(readUntil(t, alice, entity.EventMatchFound).Data, &found))

	move(t, alice, found.MatchID, 4)

	var update entity.GameUpdateData
	require.NoError(t, json.Unmarshal(readUntil(t, alice, entity.EventGameUpdate).Data, &update))
	assert.Equal(t, 2, update.Board.Filled())
	assert.Equal(t, entity.PlayerX, update.CurrentTurn)
}

func TestServer_CheckOrigin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	request := func(origin string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		return req
	}

	t.Run("Any origin without a list", func(t *testing.T) {
		server := New(logger, nil, config.WebSocket{})

		assert.True(t, server.checkOrigin(request("https://evil.example")))
	})

	t.Run("Only listed origins", func(t *testing.T) {
		server := New(logger, nil, config.WebSocket{AllowedOrigins: []string{"https://arena.example", "localhost:5173"}})

		assert.True(t, server.checkOrigin(request("https://arena.example")))
		assert.True(t, server.checkOrigin(request("http://localhost:5173")))
		assert.True(t, server.checkOrigin(request("")))
		assert.False(t, server.checkOrigin(request("https://evil.example")))
	})
}

func TestClient_Send(t *testing.T) {
	t.Run("Full buffer closes the client", func(t *testing.T) {
		// Given: a client with room for one event and no writer
		client := newClient(slog.New(slog.NewTextHandler(io.Discard, nil)), "s1", nil, 1)

		// When: two events are sent
		require.NoError(t, client.Send(entity.NewOpponentLeftEvent()))
		err := client.Send(entity.NewOpponentLeftEvent())

		// Then: the second fails and the client is closed for good
		require.ErrorIs(t, err, ErrSlowConsumer)
		require.ErrorIs(t, client.Send(entity.NewOpponentLeftEvent()), ErrConnectionClosed)

		select {
		case <-client.done:
		default:
			t.Fatal("client is not closed")
		}
	})

	t.Run("Close is idempotent", func(t *testing.T) {
		client := newClient(slog.New(slog.NewTextHandler(io.Discard, nil)), "s1", nil, 1)

		assert.NotPanics(t, func() {
			client.Close()
			client.Close()
		})
	})
}
