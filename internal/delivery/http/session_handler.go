package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/usecase"
)

// SessionHandler handles the /session routes.
type SessionHandler struct {
	sessionUC *usecase.SessionUsecase
	logger    *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionUC *usecase.SessionUsecase, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessionUC: sessionUC, logger: logger}
}

type sessionIDBody struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// Create handles POST /session/create
func (h *SessionHandler) Create(c *gin.Context) {
	s, err := h.sessionUC.Create(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, h.logger, "Create session", err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// Join handles POST /session/join
func (h *SessionHandler) Join(c *gin.Context) {
	var body sessionIDBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	s, err := h.sessionUC.Join(c.Request.Context(), body.SessionID, currentUser(c))
	if err != nil {
		writeError(c, h.logger, "Join session", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Details handles GET /session/details/:sessionId
func (h *SessionHandler) Details(c *gin.Context) {
	s, err := h.sessionUC.Details(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, h.logger, "Get session", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ListByUser handles GET /session/getSessions/:userId
func (h *SessionHandler) ListByUser(c *gin.Context) {
	sessions, err := h.sessionUC.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, h.logger, "List sessions", err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// Delete handles DELETE /session/delete/:sessionId
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessionUC.Delete(c.Request.Context(), c.Param("sessionId"), currentUser(c)); err != nil {
		writeError(c, h.logger, "Delete session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

// Leave handles POST /session/leave
func (h *SessionHandler) Leave(c *gin.Context) {
	var body sessionIDBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	if err := h.sessionUC.Leave(c.Request.Context(), body.SessionID, currentUser(c)); err != nil {
		writeError(c, h.logger, "Leave session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left the session"})
}
