package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

const mirrorBuffer = 1024

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	arenaMetrics, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("could not register metrics: %w", err)
	}

	playerRepo := repository.NewPlayerRepository(sqliteStorage.Connection)
	historyRepo := repository.NewHistoryRepository(sqliteStorage.Connection)
	matchRepo := repository.NewMatchRepository(redisStorage.Connection, conf.Redis.MatchTTL)

	mirror := usecase.NewMatchMirror(logger, matchRepo, mirrorBuffer)
	go mirror.Run(ctx)

	botService := service.NewBotService(rand.New(rand.NewSource(time.Now().UnixNano()))) //nolint: gosec // game randomness

	gameManager := usecase.NewGameManager(logger, playerRepo, historyRepo, botService, mirror, arenaMetrics, usecase.Options{
		LeaderboardLimit: conf.LeaderboardLimit,
		SinkTimeout:      conf.SinkTimeout,
	})

	if err = arenaMetrics.Observe(gameManager); err != nil {
		return fmt.Errorf("could not register arena gauges: %w", err)
	}

	ops := rest.NewOps(logger, gameManager, playerRepo, historyRepo, matchRepo, conf.LeaderboardLimit)
	httpServer := rest.NewServer(logger, ops, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), arenaMetrics)
	wsServer := websocket.New(logger, gameManager, conf.WebSocket)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		httpErrCh <- httpServer.Start(ctx, conf.HTTPPort)
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsErrCh <- wsServer.Start(ctx, conf.SocketPort)
	}()

	select {
	case err = <-httpErrCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case err = <-wsErrCh:
		if err != nil {
			return fmt.Errorf("WebSocket server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	cancel()
	waitServer(log, "HTTP", httpErrCh)
	waitServer(log, "WebSocket", wsErrCh)

	return nil
}

// waitServer gives a server the shutdown grace period to return.
func waitServer(log *slog.Logger, name string, errCh <-chan error) {
	select {
	case err := <-errCh:
		if err != nil {
			log.Error(name+" server error", "error", err)
		}
	case <-time.After(10 * time.Second):
		log.Warn(name + " server did not stop in time")
	}
}
