package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YashHaritash/btp-backend/internal/profile"
)

// LanguageHandler handles language listing requests.
type LanguageHandler struct {
	registry *profile.Registry
}

// NewLanguageHandler creates a new LanguageHandler.
func NewLanguageHandler(registry *profile.Registry) *LanguageHandler {
	return &LanguageHandler{registry: registry}
}

type languageInfo struct {
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	Compiled        bool   `json:"compiled"`
	DefaultFileName string `json:"default_file_name"`
	Image           string `json:"image"`
	TimeoutMs       int64  `json:"timeout_ms"`
	Endpoint        string `json:"endpoint"`
}

// List handles GET /api/v1/languages
func (h *LanguageHandler) List(c *gin.Context) {
	langs := h.registry.Languages()
	languages := make([]languageInfo, 0, len(langs))
	for _, lang := range langs {
		p, _ := h.registry.Lookup(lang)
		languages = append(languages, languageInfo{
			Name:            string(lang),
			DisplayName:     lang.DisplayName(),
			Compiled:        p.Compiled,
			DefaultFileName: p.DefaultFileName,
			Image:           p.Image,
			TimeoutMs:       p.Timeout.Milliseconds(),
			Endpoint:        "/run-" + string(lang),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"languages": languages,
	})
}
