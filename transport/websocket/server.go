package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

const (
	shutdownTimeout     = 5 * time.Second
	defaultPingInterval = 30 * time.Second
	defaultSendBuffer   = 64
)

type gameManager interface {
	Connect(id string, conn usecase.Conn)
	Disconnect(id string)

	Authenticate(ctx context.Context, id, username string) error
	StartMatchmaking(id string) error
	CancelMatchmaking(id string)
	StartBotMatch(id string, difficulty entity.Difficulty) error
	MakeMove(ctx context.Context, id, matchID string, cell int) error
	LeaveMatch(id, matchID string) error
	Leaderboard(ctx context.Context, id string)
}

type handlerFunc func(ctx context.Context, client *Client, data json.RawMessage) error

type Server struct {
	logger   *slog.Logger
	manager  gameManager
	conf     config.WebSocket
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func New(logger *slog.Logger, manager gameManager, conf config.WebSocket) *Server {
	if conf.PingInterval <= 0 {
		conf.PingInterval = defaultPingInterval
	}

	if conf.SendBuffer <= 0 {
		conf.SendBuffer = defaultSendBuffer
	}

	server := &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,
		conf:    conf,

		handlers: make(map[string]handlerFunc),
		clients:  make(map[*Client]struct{}),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.handlers[typeAuthenticate] = server.handleAuthenticate
	server.handlers[typeStartMatchmaking] = server.handleStartMatchmaking
	server.handlers[typeCancelMatchmaking] = server.handleCancelMatchmaking
	server.handlers[typeMakeMove] = server.handleMakeMove
	server.handlers[typeLeaveMatch] = server.handleLeaveMatch
	server.handlers[typeGetLeaderboard] = server.handleGetLeaderboard
	server.handlers[typeStartBotMatch] = server.handleStartBotMatch

	return server
}

func (that *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/ws", that.serveWS)

	return router
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}

		that.closeClients()
	}()

	that.logger.Info("websocket server started", "port", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS upgrades the request and runs the read loop until the peer goes away.
func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(that.logger, pkg.GenerateNewSessionID(), conn, that.conf.SendBuffer)
	that.track(client)

	that.manager.Connect(client.ID(), client)
	log.Info("websocket connection established", "session", client.ID(), "remote", req.RemoteAddr)

	go client.writePump(that.conf.PingInterval)

	that.readPump(req.Context(), client)

	client.Close()
	that.untrack(client)
	that.manager.Disconnect(client.ID())

	log.Info("websocket connection closed", "session", client.ID())
}

func (that *Server) readPump(ctx context.Context, client *Client) {
	log := that.logger.With("method", "readPump", "session", client.ID())

	pongWait := 2 * that.conf.PingInterval

	client.conn.SetReadLimit(that.conf.ReadLimit)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("unexpected close", "error", err)
			}
			return
		}

		_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))

		that.handleMessage(ctx, client, raw)
	}
}

func (that *Server) handleMessage(ctx context.Context, client *Client, raw []byte) {
	log := that.logger.With("method", "handleMessage", "session", client.ID())

	var message Message
	if err := json.Unmarshal(raw, &message); err != nil {
		log.Warn("failed to unmarshal message", "error", err)
		that.reply(client, entity.NewErrorEvent("invalid message format"))
		return
	}

	handler, ok := that.handlers[message.Type]
	if !ok {
		log.Warn("unknown message type", "type", message.Type)
		that.reply(client, entity.NewErrorEvent(fmt.Sprintf("%s: %s", ErrUnknownType, message.Type)))
		return
	}

	err := handler(ctx, client, message.Data)
	if err == nil {
		return
	}

	if text := errorMessage(err); text != "" {
		log.Info("request failed", "type", message.Type, "error", err)
		that.reply(client, entity.NewErrorEvent(text))
		return
	}

	log.Debug("request rejected", "type", message.Type, "error", err)
}

func (that *Server) reply(client *Client, event entity.Event) {
	if err := client.Send(event); err != nil {
		that.logger.Debug("failed to reply", "session", client.ID(), "error", err)
	}
}

// checkOrigin allows any origin when no list is configured.
func (that *Server) checkOrigin(req *http.Request) bool {
	if len(that.conf.AllowedOrigins) == 0 {
		return true
	}

	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	for _, allowed := range that.conf.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, parsed.Host) {
			return true
		}
	}

	return false
}

func (that *Server) track(client *Client) {
	that.mu.Lock()
	that.clients[client] = struct{}{}
	that.mu.Unlock()
}

func (that *Server) untrack(client *Client) {
	that.mu.Lock()
	delete(that.clients, client)
	that.mu.Unlock()
}

func (that *Server) closeClients() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for client := range that.clients {
		client.Close()
	}
}
