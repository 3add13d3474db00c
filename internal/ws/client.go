package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"tareas_api/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one websocket connection belonging to an authenticated user.
type Client struct {
	UserID int64
	Conn   *websocket.Conn
	Send   chan []byte

	hub       *Hub
	log       *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		hub:    hub,
		log:    logger.With("user_id", userID),
		done:   make(chan struct{}),
	}
}

// Run registers the client, queues the ready handshake and blocks until the
// connection goes away.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()

	c.enqueue(Message{Type: MsgReady})

	c.readPump()
}

// Close asks the writer to send a close frame and stop. Safe to call more
// than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// trySend queues msg without blocking. It reports false when the client is
// closed or too slow to keep up.
func (c *Client) trySend(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) enqueue(m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	if !c.trySend(b) {
		c.log.Warn("ws: dropping control message", "type", m.Type)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws: read error", "error", err)
			}
			return
		}

		var in Message
		if err := json.Unmarshal(msg, &in); err != nil {
			c.enqueue(Message{Type: MsgError, Message: "invalid message"})
			continue
		}
		switch in.Type {
		case MsgPing:
			c.enqueue(Message{Type: MsgPong})
		default:
			c.enqueue(Message{Type: MsgError, Message: "unknown message type"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("ws: write error", "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
