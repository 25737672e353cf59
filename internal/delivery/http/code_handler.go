package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/usecase"
)

// CodeHandler handles the /code routes.
type CodeHandler struct {
	codeUC *usecase.CodeUsecase
	logger *zap.Logger
}

// NewCodeHandler creates a new CodeHandler.
func NewCodeHandler(codeUC *usecase.CodeUsecase, logger *zap.Logger) *CodeHandler {
	return &CodeHandler{codeUC: codeUC, logger: logger}
}

type updateCodeBody struct {
	Code *string `json:"code" binding:"required"`
}

type createCodeBody struct {
	SessionID string  `json:"sessionId" binding:"required"`
	Code      *string `json:"code" binding:"required"`
}

// Create handles POST /code/create. It stores the first version, or a new
// version when the session already has code.
func (h *CodeHandler) Create(c *gin.Context) {
	var body createCodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	doc, err := h.codeUC.Update(c.Request.Context(), body.SessionID, *body.Code, currentUser(c))
	if err != nil {
		writeError(c, h.logger, "Create code", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Get handles GET /code/getCode/:sessionId
func (h *CodeHandler) Get(c *gin.Context) {
	doc, err := h.codeUC.Get(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, h.logger, "Get code", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Update handles PUT /code/update/:sessionId
func (h *CodeHandler) Update(c *gin.Context) {
	var body updateCodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	doc, err := h.codeUC.Update(c.Request.Context(), c.Param("sessionId"), *body.Code, currentUser(c))
	if err != nil {
		writeError(c, h.logger, "Update code", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
