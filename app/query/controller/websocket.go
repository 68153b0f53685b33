package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/consultia/bonusx/pkg/redis"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: In production, restrict to specific origins
		return true
	},
}

// ServerMessage represents messages sent to WebSocket clients.
type ServerMessage struct {
	Type    string      `json:"type"`    // "sync.run", "ping", "error"
	Payload interface{} `json:"payload"` // Event-specific data
}

// HandleWebSocket upgrades the connection and streams sync-run events
// relayed from the sync:runs redis channel.
//
// Server sends:
// - {"type": "sync.run", "payload": {"source": "...", "table": "...", "rows": N, ...}}
// - {"type": "ping", "payload": {"timestamp": 1234567890}}
// - {"type": "error", "payload": {"message": "..."}}
//
// All goroutines have panic recovery to prevent crashes.
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if c.App.RedisClient == nil {
		http.Error(w, "Real-time events not available (Redis disabled)", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func(conn *websocket.Conn) {
		if err := conn.Close(); err != nil {
			c.App.Logger.Error("Failed to close WebSocket connection", zap.Error(err))
		}
	}(conn)

	c.App.Logger.Info("WebSocket client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Channel for outgoing messages
	send := make(chan ServerMessage, 256)

	var wg sync.WaitGroup

	spawn := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					c.App.Logger.Error("Panic in websocket goroutine",
						zap.String("goroutine", name),
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
						zap.String("remote_addr", r.RemoteAddr))
					cancel()
				}
			}()
			fn()
		}()
	}

	spawn("redis-relay", func() { c.relayRunEvents(ctx, send) })
	spawn("ping", func() { c.sendPings(ctx, send) })
	spawn("writer", func() { c.writeMessages(conn, send) })

	// Read until the client disconnects; incoming payloads are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	close(send)
	wg.Wait()

	c.App.Logger.Info("WebSocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// relayRunEvents forwards every sync:runs event to the send channel.
func (c *Controller) relayRunEvents(ctx context.Context, send chan<- ServerMessage) {
	pubsub := c.App.RedisClient.Subscribe(ctx, redis.RunsChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				select {
				case send <- ServerMessage{Type: "error", Payload: map[string]any{"message": "event stream closed"}}:
				case <-ctx.Done():
				}
				return
			}

			var event redis.RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.App.Logger.Warn("Dropping malformed run event", zap.Error(err))
				continue
			}

			select {
			case send <- ServerMessage{Type: "sync.run", Payload: event}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// sendPings keeps the connection alive with periodic application-level pings.
func (c *Controller) sendPings(ctx context.Context, send chan<- ServerMessage) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			select {
			case send <- ServerMessage{Type: "ping", Payload: map[string]int64{"timestamp": t.Unix()}}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// writeMessages drains the send channel onto the connection. Exits when the
// channel closes or a write fails.
func (c *Controller) writeMessages(conn *websocket.Conn, send <-chan ServerMessage) {
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			c.App.Logger.Debug("WebSocket write failed", zap.Error(err))
			return
		}
	}
}
