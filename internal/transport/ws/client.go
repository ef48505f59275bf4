package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	relay_errors "relaychat/pkg/errors"
)

const (
	writeDeadline = 10 * time.Second
	pingPeriod    = 30 * time.Second
	readDeadline  = 60 * time.Second
	sendQueueSize = 256
)

// Client is a WebSocket connection. Deliver enqueues onto the buffered Send
// channel; the write loop drains it in FIFO order, which is what preserves
// event order across successive broker publishes.
type Client struct {
	id     string
	userID int64

	Conn *websocket.Conn
	Send chan []byte

	mu     sync.Mutex // protects conn writes and close
	closed bool
}

func NewClient(conn *websocket.Conn, userID int64) *Client {
	return &Client{
		id:     uuid.New().String(),
		userID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendQueueSize),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() int64 {
	return c.userID
}

// Deliver enqueues a payload for the write loop. It fails with
// ErrDeliveryTimeout when the queue cannot accept the payload before ctx
// expires; the caller treats that as a transient, non-fatal failure.
func (c *Client) Deliver(ctx context.Context, payload []byte) error {
	select {
	case c.Send <- payload:
		return nil
	case <-ctx.Done():
		return relay_errors.ErrDeliveryTimeout
	}
}

// WriteLoop drains the Send queue and keeps the connection alive with pings.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.Close()
				return
			}
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			err := c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
			if err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				c.Close()
				return
			}
		}
	}
}

// Close closes the underlying connection once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.Conn.Close()
}
