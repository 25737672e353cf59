package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/auth"
	"github.com/YashHaritash/btp-backend/internal/config"
	amqpdelivery "github.com/YashHaritash/btp-backend/internal/delivery/amqp"
	handler "github.com/YashHaritash/btp-backend/internal/delivery/http"
	"github.com/YashHaritash/btp-backend/internal/executor"
	"github.com/YashHaritash/btp-backend/internal/pool"
	"github.com/YashHaritash/btp-backend/internal/profile"
	"github.com/YashHaritash/btp-backend/internal/realtime"
	"github.com/YashHaritash/btp-backend/internal/repository"
	"github.com/YashHaritash/btp-backend/internal/repository/postgres"
	"github.com/YashHaritash/btp-backend/internal/session"
	"github.com/YashHaritash/btp-backend/internal/usecase"
	"github.com/YashHaritash/btp-backend/internal/workspace"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Server.GinMode == gin.ReleaseMode {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Starting collaboration server")

	gin.SetMode(cfg.Server.GinMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Language profiles
	registry := profile.NewRegistry()
	if cfg.Sandbox.ProfilesFile != "" {
		if err := registry.LoadOverrides(cfg.Sandbox.ProfilesFile); err != nil {
			logger.Fatal("Failed to load profile overrides", zap.Error(err))
		}
		logger.Info("Loaded profile overrides", zap.String("path", cfg.Sandbox.ProfilesFile))
	}

	// Scratch space for workspaces
	workspaces, err := workspace.NewManager(cfg.Sandbox.ScratchDir, logger)
	if err != nil {
		logger.Fatal("Failed to prepare scratch directory", zap.Error(err))
	}
	logger.Info("Workspace root ready", zap.String("root", workspaces.Root()))

	healthChecks := map[string]handler.HealthCheck{}

	// Container sandbox (optional; compiled languages fail without it)
	var sandbox executor.Runner
	if cfg.Sandbox.EnableDocker {
		dockerAPI, err := executor.NewDockerAPI()
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err = dockerAPI.Ping(pingCtx)
			pingCancel()
		}
		if err != nil {
			logger.Warn("Docker unavailable, compiled languages will fail", zap.Error(err))
		} else {
			defer dockerAPI.Close()
			sandbox = executor.NewDockerRunner(dockerAPI, executor.Limits{
				MemoryMB:  cfg.Sandbox.MemoryMB,
				PidsLimit: cfg.Sandbox.PidsLimit,
				NanoCPUs:  cfg.Sandbox.NanoCPUs,
			}, logger)
			healthChecks["docker"] = dockerAPI.Ping
			logger.Info("Connected to Docker")
		}
	}

	engine := executor.NewEngine(
		registry,
		workspaces,
		executor.NewProcessRunner(logger),
		sandbox,
		logger,
		executor.WithIsolatedInterpreters(cfg.Sandbox.IsolateInterpreted),
	)

	// Worker pool in front of the engine
	if worst := cfg.Worker.QueueTimeout + registry.MaxTimeout(); cfg.Worker.QueueTimeout <= 0 || worst >= cfg.Server.WriteTimeout {
		logger.Warn("Queued runs may outlast the HTTP write timeout",
			zap.Duration("queue_timeout", cfg.Worker.QueueTimeout),
			zap.Duration("max_run_budget", registry.MaxTimeout()),
			zap.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
	}
	workerPool := pool.NewWorkerPool(cfg.Worker.PoolSize, cfg.Worker.QueueSize, logger,
		pool.WithQueueTimeout(cfg.Worker.QueueTimeout),
	)
	workerPool.Start()

	// Connect to PostgreSQL (optional)
	var (
		runRepo     repository.RunRepository
		sessionRepo repository.SessionRepository
		fileRepo    repository.FileRepository
		codeRepo    repository.CodeRepository
	)
	if cfg.Database.URL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
		}
		logger.Info("Connected to PostgreSQL")

		runRepo = postgres.NewPostgresRunRepository(dbPool)
		sessionRepo = postgres.NewPostgresSessionRepository(dbPool)
		fileRepo = postgres.NewPostgresFileRepository(dbPool)
		codeRepo = postgres.NewPostgresCodeRepository(dbPool)
		healthChecks["postgres"] = dbPool.Ping
	} else {
		logger.Info("DATABASE_URL not set, session persistence disabled")
	}

	// Live session state: Redis when configured, otherwise process memory
	var store session.Store = session.NewMemoryStore()
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to parse Redis URL", zap.Error(err))
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to ping Redis", zap.Error(err))
		}
		logger.Info("Connected to Redis")

		store = session.NewRedisStore(rdb)
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Realtime hub
	instanceID, _ := uuid.NewV7()
	hub := realtime.NewHub(store, instanceID.String(), logger,
		realtime.WithLegacyCodeAlias(cfg.Realtime.LegacyCodeAlias),
	)

	// Cross-instance bridge (optional; needs the shared Redis store)
	if cfg.RabbitMQ.URL != "" {
		if cfg.Redis.URL == "" {
			logger.Warn("RABBITMQ_URL set without REDIS_URL, late joiners on other instances will miss state")
		}
		bridge := amqpdelivery.NewBridge(cfg.RabbitMQ.URL, hub, logger)
		hub.SetBridge(bridge)
		go bridge.Start(ctx)
		logger.Info("Realtime bridge enabled", zap.String("instance_id", instanceID.String()))
	}

	// Use cases
	runUC := usecase.NewRunCodeUsecase(registry, workerPool, engine, runRepo, logger)
	deps := &handler.RouterDeps{
		Registry:          registry,
		RunUC:             runUC,
		Hub:               hub,
		Logger:            logger,
		RateLimitPerMin:   cfg.Server.RateLimit,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		RequireAuthForRun: cfg.Auth.RequireForRun,
		HealthChecks:      healthChecks,
	}
	if cfg.Auth.JWTSecret != "" {
		deps.Verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	} else if sessionRepo != nil || cfg.Auth.RequireForRun {
		logger.Warn("JWT_SECRET not set, authenticated routes are disabled")
	}
	if sessionRepo != nil {
		deps.SessionUC = usecase.NewSessionUsecase(sessionRepo, hub, logger)
		deps.FileUC = usecase.NewFileUsecase(sessionRepo, fileRepo, hub, logger)
		deps.CodeUC = usecase.NewCodeUsecase(codeRepo, hub, logger)
	}

	router := handler.NewRouter(deps)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server...", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight executions finish and clean up before exiting.
	workerPool.Stop()
	cancel()

	logger.Info("Server stopped")
}
