package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades connections onto the realtime hub.
type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *realtime.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// Connect handles GET /ws (WebSocket upgrade). It blocks until the client leaves.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := realtime.NewWSClient(conn, h.logger)
	h.logger.Debug("Realtime connection opened", zap.String("client_id", client.ID()))
	client.Serve(c.Request.Context(), h.hub)
	h.logger.Debug("Realtime connection closed", zap.String("client_id", client.ID()))
}
