package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/executor"
	"github.com/YashHaritash/btp-backend/internal/usecase"
)

// RunHandler handles POST /run-{lang} and run history lookups.
type RunHandler struct {
	runUC  *usecase.RunCodeUsecase
	logger *zap.Logger
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runUC *usecase.RunCodeUsecase, logger *zap.Logger) *RunHandler {
	return &RunHandler{runUC: runUC, logger: logger}
}

// Run returns the handler for POST /run-{lang}.
func (h *RunHandler) Run(lang domain.Language) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		result, err := h.runUC.Execute(c.Request.Context(), lang, &req)
		if err != nil {
			h.writeRunError(c, lang, err)
			return
		}

		switch result.Status {
		case domain.StatusSuccess:
			c.JSON(http.StatusOK, gin.H{"output": result.Stdout})
		case domain.StatusTimeout:
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  executor.TimeoutMessage,
				"stdout": result.Stdout,
				"stderr": result.Stderr,
			})
		case domain.StatusCompilationError, domain.StatusRuntimeError:
			msg := result.Stderr
			if msg == "" {
				msg = fmt.Sprintf("Process exited with code %d", result.ExitCode)
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  msg,
				"stdout": result.Stdout,
				"stderr": result.Stderr,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"details": "execution " + result.ExecutionID.String() + " failed",
			})
		}
	}
}

func (h *RunHandler) writeRunError(c *gin.Context, lang domain.Language, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptySourceCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": lang.DisplayName() + " code is required!"})
	case errors.Is(err, domain.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPath), errors.Is(err, domain.ErrInvalidLanguage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrServerBusy):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Debug("Client went away before the run finished", zap.String("language", string(lang)))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request cancelled"})
	default:
		h.logger.Error("Run failed", zap.String("language", string(lang)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": "execution failed"})
	}
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid execution ID format"})
		return
	}

	run, err := h.runUC.GetRun(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "Get run", err)
		return
	}
	c.JSON(http.StatusOK, run)
}
