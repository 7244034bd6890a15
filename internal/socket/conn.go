// Package socket adapts a gorilla/websocket connection to a hub viewer.
//
// Each Conn has a bounded outbox drained by its own WritePump goroutine, so a
// slow client only ever loses its own messages.
package socket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/jamoveo/backend/internal/models"
)

var (
	ErrClosed         = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Config holds per-connection limits and timeouts.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     16,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}

// Conn is one viewer's WebSocket.
type Conn struct {
	id    string
	role  models.Role
	ws    *websocket.Conn
	cfg   Config
	clock clockwork.Clock

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn wraps ws. The caller must start WritePump and ReadPump.
func NewConn(ws *websocket.Conn, id string, role models.Role, cfg Config, clock clockwork.Clock) *Conn {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Conn{
		id:    id,
		role:  role,
		ws:    ws,
		cfg:   cfg,
		clock: clock,
		send:  make(chan []byte, cfg.SendBuffer),
		done:  make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Role() models.Role { return c.role }

// Send queues payload without blocking.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrSendBufferFull
	}
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close marks the connection closed. WritePump sends a close frame and
// releases the socket. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ReadPump delivers inbound text frames to handler until the peer goes away
// or the connection is closed. It closes the connection on return.
func (c *Conn) ReadPump(handler func(message []byte)) {
	defer c.Close()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", slog.String("conn_id", c.id), slog.Any("error", err))
			}
			return
		}
		handler(message)
	}
}

// WritePump drains the outbox to the socket and pings the peer on the
// connection's clock. It owns all writes and closes the socket on return.
func (c *Conn) WritePump() {
	ticker := c.clock.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("websocket write failed", slog.String("conn_id", c.id), slog.Any("error", err))
				c.Close()
				return
			}

		case <-ticker.Chan():
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
