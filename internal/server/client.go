package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ripple-chat/internal/presence"
	"ripple-chat/internal/services"
	"ripple-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Rate limits per minute
type RateLimits struct {
	MaxTypingEvents int
	MaxReadReceipts int
	MaxPingMessages int
}

var DefaultRateLimits = RateLimits{
	MaxTypingEvents: 60,
	MaxReadReceipts: 120,
	MaxPingMessages: 60,
}

// ClientRateLimiter tracks rate limits per client
type ClientRateLimiter struct {
	typingTokens      int
	readReceiptTokens int
	pingTokens        int
	lastRefill        time.Time
	mu                sync.Mutex
}

func NewClientRateLimiter() *ClientRateLimiter {
	return &ClientRateLimiter{
		typingTokens:      DefaultRateLimits.MaxTypingEvents,
		readReceiptTokens: DefaultRateLimits.MaxReadReceipts,
		pingTokens:        DefaultRateLimits.MaxPingMessages,
		lastRefill:        time.Now(),
	}
}

func (rl *ClientRateLimiter) Allow(msgType string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastRefill) >= time.Minute {
		rl.typingTokens = DefaultRateLimits.MaxTypingEvents
		rl.readReceiptTokens = DefaultRateLimits.MaxReadReceipts
		rl.pingTokens = DefaultRateLimits.MaxPingMessages
		rl.lastRefill = now
	}

	switch msgType {
	case "typing:start", "typing:stop":
		if rl.typingTokens > 0 {
			rl.typingTokens--
			return true
		}
	case "read":
		if rl.readReceiptTokens > 0 {
			rl.readReceiptTokens--
			return true
		}
	case "ping":
		if rl.pingTokens > 0 {
			rl.pingTokens--
			return true
		}
	}
	return false
}

// Client is a single WebSocket connection. It satisfies presence.Conn so
// the registry can push events to it without knowing the wire protocol.
type Client struct {
	conn         *websocket.Conn
	send         chan []byte
	userID       uuid.UUID
	clientID     string
	registry     *presence.Registry
	router       *services.DeliveryRouter
	rateLimiter  *ClientRateLimiter
	logger       *logger.Logger
	sendMu       sync.Mutex
	closed       bool
	lastActivity time.Time
}

// ClientMessage is what clients send over the socket.
type ClientMessage struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversationId,omitempty"`
	MessageID      uuid.UUID `json:"messageId,omitempty"`
}

func NewClient(conn *websocket.Conn, userID uuid.UUID, registry *presence.Registry, router *services.DeliveryRouter, l *logger.Logger) *Client {
	return &Client{
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		userID:       userID,
		clientID:     uuid.New().String(),
		registry:     registry,
		router:       router,
		rateLimiter:  NewClientRateLimiter(),
		logger:       l,
		lastActivity: time.Now(),
	}
}

// Send queues an event for the write pump. A full buffer means the
// client cannot keep up; reporting an error makes the registry drop the
// connection. The mutex keeps the send channel open for the duration of
// the enqueue, so a concurrent Close cannot turn valid client input into
// a send on a closed channel.
func (c *Client) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *Client) Close() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// Run registers the client and blocks until the read pump exits.
func (c *Client) Run() {
	c.registry.Connect(c.userID, c.clientID, c)
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.registry.Disconnect(c.userID, c.clientID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastActivity = time.Now()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.logger != nil {
				c.logger.Warnf("websocket unexpected close for user %s: %v", c.userID, err)
			}
			break
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		c.lastActivity = time.Now()

		if err := c.handleMessage(message); err != nil && c.logger != nil {
			c.logger.Warnf("websocket message from user %s failed: %v", c.userID, err)
		}
	}
}

func (c *Client) handleMessage(message []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}

	if !c.rateLimiter.Allow(msg.Type) {
		if c.logger != nil {
			c.logger.Warnf("rate limit exceeded for user %s on %s", c.userID, msg.Type)
		}
		return nil
	}

	ctx := context.Background()
	switch msg.Type {
	case "typing:start":
		return c.router.TypingStart(ctx, msg.ConversationID, c.userID)
	case "typing:stop":
		return c.router.TypingStop(ctx, msg.ConversationID, c.userID)
	case "read":
		_, err := c.router.MarkRead(ctx, msg.MessageID, c.userID)
		return err
	case "ping":
		return c.Send([]byte(`{"type":"pong"}`))
	default:
		if c.logger != nil {
			c.logger.Warnf("unknown websocket message type %q from user %s", msg.Type, c.userID)
		}
		return nil
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

			if time.Since(c.lastActivity) > pongWait*2 {
				if c.logger != nil {
					c.logger.Infof("client idle timeout for user %s", c.userID)
				}
				return
			}
		}
	}
}
