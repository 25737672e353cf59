package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2 * 1024 * 1024
	sendBufferSize = 256
)

// WSClient is a Client over a gorilla/websocket connection.
type WSClient struct {
	id     string
	conn   *websocket.Conn
	send   chan Message
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// NewWSClient wraps an upgraded connection.
func NewWSClient(conn *websocket.Conn, logger *zap.Logger) *WSClient {
	id, _ := uuid.NewV7()
	return &WSClient{
		id:     id.String(),
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("client_id", id.String())),
	}
}

var _ Client = (*WSClient)(nil)

func (c *WSClient) ID() string { return c.id }

func (c *WSClient) Send(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSClient) Close() {
	c.once.Do(func() { close(c.done) })
}

// Serve pumps the connection until it closes, then leaves the hub.
func (c *WSClient) Serve(ctx context.Context, hub *Hub) {
	metrics.RealtimeConnections.Inc()
	defer metrics.RealtimeConnections.Dec()

	go c.writePump()
	c.readPump(ctx, hub)

	hub.Leave(c)
	c.Close()
}

func (c *WSClient) readPump(ctx context.Context, hub *Hub) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Realtime connection closed unexpectedly", zap.Error(err))
			}
			return
		}
		hub.HandleMessage(ctx, c, raw)
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("Realtime write failed (client disconnected)", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
