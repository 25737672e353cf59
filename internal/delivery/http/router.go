package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/delivery/http/middleware"
	"github.com/YashHaritash/btp-backend/internal/profile"
	"github.com/YashHaritash/btp-backend/internal/realtime"
	"github.com/YashHaritash/btp-backend/internal/usecase"
)

// RouterDeps holds everything the router wires into handlers. The session,
// file and code usecases are nil when persistence is not configured; their
// routes are then not registered.
type RouterDeps struct {
	Registry          *profile.Registry
	RunUC             *usecase.RunCodeUsecase
	SessionUC         *usecase.SessionUsecase
	FileUC            *usecase.FileUsecase
	CodeUC            *usecase.CodeUsecase
	Hub               *realtime.Hub
	Verifier          middleware.TokenVerifier
	Logger            *zap.Logger
	RateLimitPerMin   int
	MaxBodyBytes      int64
	RequireAuthForRun bool
	HealthChecks      map[string]HealthCheck
}

const defaultMaxBodyBytes = 2 << 20

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = defaultMaxBodyBytes
	}

	router := gin.New()
	// File names may contain escaped slashes.
	router.UseRawPath = true

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(deps.Logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		healthHandler := NewHealthHandler(deps.HealthChecks, deps.Logger)
		v1.GET("/health", healthHandler.Health)

		langHandler := NewLanguageHandler(deps.Registry)
		v1.GET("/languages", langHandler.List)
	}

	// Code execution (rate limited, body capped)
	runHandler := NewRunHandler(deps.RunUC, deps.Logger)
	run := router.Group("/")
	run.Use(middleware.RateLimiter(deps.RateLimitPerMin))
	run.Use(middleware.BodySizeLimit(deps.MaxBodyBytes))
	if deps.RequireAuthForRun && deps.Verifier != nil {
		run.Use(middleware.Auth(deps.Verifier))
	}
	for _, lang := range deps.Registry.Languages() {
		run.POST("/run-"+string(lang), runHandler.Run(lang))
	}
	v1.GET("/runs/:id", runHandler.GetRun)

	// Realtime channel
	wsHandler := NewWebSocketHandler(deps.Hub, deps.Logger)
	router.GET("/ws", wsHandler.Connect)

	if deps.Verifier == nil {
		return router
	}
	auth := middleware.Auth(deps.Verifier)

	if deps.SessionUC != nil {
		sessionHandler := NewSessionHandler(deps.SessionUC, deps.Logger)
		sessions := router.Group("/session", auth, middleware.BodySizeLimit(deps.MaxBodyBytes))
		sessions.POST("/create", sessionHandler.Create)
		sessions.POST("/join", sessionHandler.Join)
		sessions.POST("/leave", sessionHandler.Leave)
		sessions.GET("/details/:sessionId", sessionHandler.Details)
		sessions.GET("/getSessions/:userId", sessionHandler.ListByUser)
		sessions.DELETE("/delete/:sessionId", sessionHandler.Delete)

		if deps.FileUC != nil {
			fileHandler := NewFileHandler(deps.FileUC, deps.Logger)
			sessions.GET("/:sessionId/files", fileHandler.List)
			sessions.POST("/:sessionId/files", fileHandler.Create)
			sessions.GET("/:sessionId/files/:fileName", fileHandler.Get)
			sessions.DELETE("/:sessionId/files/:fileName", fileHandler.Delete)
			sessions.PUT("/:sessionId/files/:fileName/content", fileHandler.UpdateContent)
			sessions.PUT("/:sessionId/files/:fileName/rename", fileHandler.Rename)
		}
	}

	if deps.CodeUC != nil {
		codeHandler := NewCodeHandler(deps.CodeUC, deps.Logger)
		code := router.Group("/code", auth, middleware.BodySizeLimit(deps.MaxBodyBytes))
		code.POST("/create", codeHandler.Create)
		code.GET("/getCode/:sessionId", codeHandler.Get)
		code.PUT("/update/:sessionId", codeHandler.Update)
	}

	return router
}
