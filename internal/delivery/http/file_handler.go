package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/usecase"
)

// FileHandler handles the /session/:sessionId/files routes.
type FileHandler struct {
	fileUC *usecase.FileUsecase
	logger *zap.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileUC *usecase.FileUsecase, logger *zap.Logger) *FileHandler {
	return &FileHandler{fileUC: fileUC, logger: logger}
}

type createFileBody struct {
	FileName string          `json:"fileName" binding:"required"`
	Content  string          `json:"content"`
	Language domain.Language `json:"language"`
}

type updateContentBody struct {
	Content *string `json:"content" binding:"required"`
}

type renameFileBody struct {
	NewFileName string `json:"newFileName" binding:"required"`
}

// List handles GET /session/:sessionId/files
func (h *FileHandler) List(c *gin.Context) {
	files, err := h.fileUC.List(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, h.logger, "List files", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// Create handles POST /session/:sessionId/files
func (h *FileHandler) Create(c *gin.Context) {
	var body createFileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	f, err := h.fileUC.Create(c.Request.Context(), c.Param("sessionId"), body.FileName, body.Content, body.Language, currentUser(c))
	if err != nil {
		writeError(c, h.logger, "Create file", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file": f})
}

// Get handles GET /session/:sessionId/files/:fileName
func (h *FileHandler) Get(c *gin.Context) {
	f, err := h.fileUC.Get(c.Request.Context(), c.Param("sessionId"), c.Param("fileName"))
	if err != nil {
		writeError(c, h.logger, "Get file", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"content":      f.Content,
		"language":     f.Language,
		"lastModified": f.UpdatedAt,
	})
}

// UpdateContent handles PUT /session/:sessionId/files/:fileName/content
func (h *FileHandler) UpdateContent(c *gin.Context) {
	var body updateContentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	f, err := h.fileUC.UpdateContent(c.Request.Context(), c.Param("sessionId"), c.Param("fileName"), *body.Content, currentUser(c))
	if err != nil {
		writeError(c, h.logger, "Update file", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file": f})
}

// Rename handles PUT /session/:sessionId/files/:fileName/rename
func (h *FileHandler) Rename(c *gin.Context) {
	var body renameFileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	f, err := h.fileUC.Rename(c.Request.Context(), c.Param("sessionId"), c.Param("fileName"), body.NewFileName, currentUser(c))
	if err != nil {
		writeError(c, h.logger, "Rename file", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file": f})
}

// Delete handles DELETE /session/:sessionId/files/:fileName
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.fileUC.Delete(c.Request.Context(), c.Param("sessionId"), c.Param("fileName"), currentUser(c)); err != nil {
		writeError(c, h.logger, "Delete file", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}
