package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Client is one upgraded socket with its read and write pumps.
type Client struct {
	ID      string
	Session *domain.Session

	conn    *websocket.Conn
	send    chan []byte
	cfg     config.WebSocket
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

func NewClient(conn *websocket.Conn, sess *domain.Session, cfg config.WebSocket) *Client {
	return &Client{
		ID:      sess.ConnectionID,
		Session: sess,
		conn:    conn,
		send:    make(chan []byte, cfg.SendBuffer),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.MessageRate), cfg.MessageBurst),
	}
}

// enqueue hands data to the write pump. A full buffer means the peer stopped
// reading; the client is closed and false returned.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.closeLocked()
		return false
	}
}

// SendJSON marshals v and queues it.
func (c *Client) SendJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

// Close stops the write pump, which then closes the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the socket fails and hands each to handle.
// Frames beyond the rate limit are answered with an error frame and dropped.
func (c *Client) ReadPump(ctx context.Context, handle func(ctx context.Context, msg []byte)) {
	l := log.Ctx(ctx)

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				l.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		if !c.limiter.Allow() {
			c.SendJSON(domain.NewErrorFrame(domain.ErrCodeRateLimited, "slow down"))
			continue
		}
		handle(ctx, message)
	}
}

// WritePump drains the send buffer and keeps the peer alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
