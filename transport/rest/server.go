package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

type requestRecorder interface {
	HTTPRequest(method, path string, status int)
}

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
}

// NewServer wires the ops routes. metricsHandler serves the prometheus scrape endpoint.
func NewServer(logger *slog.Logger, ops OpsHandler, metricsHandler http.Handler, recorder requestRecorder) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(recordRequests(recorder))

	e.GET("/ping", ops.Ping)
	e.GET("/health", ops.Health)
	e.GET("/metrics", echo.WrapHandler(metricsHandler))

	api := e.Group("/api")
	api.GET("/leaderboard", ops.Leaderboard)
	api.GET("/history", ops.History)
	api.GET("/matches/:id", ops.Match)

	return &Server{
		logger: logger.With("component", "rest"),
		echo:   e,
	}
}

func (that *Server) Handler() http.Handler {
	return that.echo
}

// Start - starts the ops HTTP server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := that.echo.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	that.logger.Info("http server started", "port", port)

	if err := that.echo.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func recordRequests(recorder requestRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := next(ctx)

			status := ctx.Response().Status
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			}

			recorder.HTTPRequest(ctx.Request().Method, ctx.Path(), status)

			return err
		}
	}
}
