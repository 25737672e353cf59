package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the collaboration server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Sandbox  SandboxConfig
	Realtime RealtimeConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         int           `mapstructure:"API_PORT"`
	ReadTimeout  time.Duration `mapstructure:"API_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"API_WRITE_TIMEOUT"`
	RateLimit    int           `mapstructure:"API_RATE_LIMIT"`
	MaxBodyBytes int64         `mapstructure:"API_MAX_BODY_BYTES"`
	GinMode      string        `mapstructure:"GIN_MODE"`
}

// DatabaseConfig is optional; an empty URL disables persistence-backed routes.
type DatabaseConfig struct {
	URL string `mapstructure:"DATABASE_URL"`
}

// RabbitMQConfig is optional; an empty URL disables the cross-instance bridge.
type RabbitMQConfig struct {
	URL string `mapstructure:"RABBITMQ_URL"`
}

// RedisConfig is optional; an empty URL keeps live session state in memory.
type RedisConfig struct {
	URL string `mapstructure:"REDIS_URL"`
}

type WorkerConfig struct {
	PoolSize     int           `mapstructure:"WORKER_POOL_SIZE"`
	QueueSize    int           `mapstructure:"WORKER_QUEUE_SIZE"`
	QueueTimeout time.Duration `mapstructure:"WORKER_QUEUE_TIMEOUT"`
}

type SandboxConfig struct {
	ScratchDir         string `mapstructure:"SANDBOX_SCRATCH_DIR"`
	EnableDocker       bool   `mapstructure:"SANDBOX_ENABLE_DOCKER"`
	IsolateInterpreted bool   `mapstructure:"SANDBOX_ISOLATE_INTERPRETED"`
	MemoryMB           int64  `mapstructure:"SANDBOX_MEMORY_MB"`
	PidsLimit          int64  `mapstructure:"SANDBOX_PIDS_LIMIT"`
	NanoCPUs           int64  `mapstructure:"SANDBOX_NANO_CPUS"`
	ProfilesFile       string `mapstructure:"SANDBOX_PROFILES_FILE"`
}

type RealtimeConfig struct {
	LegacyCodeAlias bool `mapstructure:"REALTIME_LEGACY_CODE_ALIAS"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	RequireForRun bool   `mapstructure:"AUTH_REQUIRE_FOR_RUN"`
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("API_PORT", 5000)
	viper.SetDefault("API_READ_TIMEOUT", "10s")
	viper.SetDefault("API_WRITE_TIMEOUT", "60s")
	viper.SetDefault("API_RATE_LIMIT", 120)
	viper.SetDefault("API_MAX_BODY_BYTES", 2<<20)
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("WORKER_POOL_SIZE", 4)
	viper.SetDefault("WORKER_QUEUE_SIZE", 16)
	viper.SetDefault("WORKER_QUEUE_TIMEOUT", "20s")
	viper.SetDefault("SANDBOX_SCRATCH_DIR", "")
	viper.SetDefault("SANDBOX_ENABLE_DOCKER", true)
	viper.SetDefault("SANDBOX_ISOLATE_INTERPRETED", false)
	viper.SetDefault("SANDBOX_MEMORY_MB", 256)
	viper.SetDefault("SANDBOX_PIDS_LIMIT", 64)
	viper.SetDefault("SANDBOX_NANO_CPUS", 1_000_000_000)
	viper.SetDefault("SANDBOX_PROFILES_FILE", "")
	viper.SetDefault("REALTIME_LEGACY_CODE_ALIAS", true)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("AUTH_REQUIRE_FOR_RUN", false)

	// Attempt to read .env file (non-fatal if missing)
	_ = viper.ReadInConfig()

	cfg := &Config{}
	cfg.Server.Port = viper.GetInt("API_PORT")
	cfg.Server.ReadTimeout = viper.GetDuration("API_READ_TIMEOUT")
	cfg.Server.WriteTimeout = viper.GetDuration("API_WRITE_TIMEOUT")
	cfg.Server.RateLimit = viper.GetInt("API_RATE_LIMIT")
	cfg.Server.MaxBodyBytes = viper.GetInt64("API_MAX_BODY_BYTES")
	cfg.Server.GinMode = viper.GetString("GIN_MODE")
	cfg.Database.URL = viper.GetString("DATABASE_URL")
	cfg.RabbitMQ.URL = viper.GetString("RABBITMQ_URL")
	cfg.Redis.URL = viper.GetString("REDIS_URL")
	cfg.Worker.PoolSize = viper.GetInt("WORKER_POOL_SIZE")
	cfg.Worker.QueueSize = viper.GetInt("WORKER_QUEUE_SIZE")
	cfg.Worker.QueueTimeout = viper.GetDuration("WORKER_QUEUE_TIMEOUT")
	cfg.Sandbox.ScratchDir = viper.GetString("SANDBOX_SCRATCH_DIR")
	cfg.Sandbox.EnableDocker = viper.GetBool("SANDBOX_ENABLE_DOCKER")
	cfg.Sandbox.IsolateInterpreted = viper.GetBool("SANDBOX_ISOLATE_INTERPRETED")
	cfg.Sandbox.MemoryMB = viper.GetInt64("SANDBOX_MEMORY_MB")
	cfg.Sandbox.PidsLimit = viper.GetInt64("SANDBOX_PIDS_LIMIT")
	cfg.Sandbox.NanoCPUs = viper.GetInt64("SANDBOX_NANO_CPUS")
	cfg.Sandbox.ProfilesFile = viper.GetString("SANDBOX_PROFILES_FILE")
	cfg.Realtime.LegacyCodeAlias = viper.GetBool("REALTIME_LEGACY_CODE_ALIAS")
	cfg.Auth.JWTSecret = viper.GetString("JWT_SECRET")
	cfg.Auth.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.Auth.RequireForRun = viper.GetBool("AUTH_REQUIRE_FOR_RUN")

	return cfg, nil
}
