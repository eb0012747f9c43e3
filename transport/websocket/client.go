package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const writeWait = 10 * time.Second

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSlowConsumer     = errors.New("send buffer is full")
)

// Client is one websocket connection. Send is safe for concurrent use and never blocks.
type Client struct {
	id     string
	logger *slog.Logger
	conn   *websocket.Conn

	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newClient(logger *slog.Logger, id string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		id:     id,
		logger: logger.With("session", id),
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

func (that *Client) ID() string {
	return that.id
}

// Send queues the event for the write pump. A full buffer closes the client.
func (that *Client) Send(event entity.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return ErrConnectionClosed
	}

	select {
	case that.send <- data:
		return nil
	default:
		that.closeLocked()
		return ErrSlowConsumer
	}
}

func (that *Client) Close() {
	that.mu.Lock()
	that.closeLocked()
	that.mu.Unlock()
}

func (that *Client) closeLocked() {
	if that.closed {
		return
	}

	that.closed = true
	close(that.done)
}

// writePump drains the send buffer and pings the peer. It owns all writes to conn.
func (that *Client) writePump(pingInterval time.Duration) {
	log := that.logger.With("method", "writePump")

	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				log.Debug("failed to write message", "error", err)
				that.Close()
				return
			}
		case <-ticker.C:
			if err := that.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("failed to ping", "error", err)
				that.Close()
				return
			}
		case <-that.done:
			that.flush()
			_ = that.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

// flush writes what is already buffered so a closing client still sees the last events.
func (that *Client) flush() {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	for {
		select {
		case data := <-that.send:
			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (that *Client) write(messageType int, data []byte) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
