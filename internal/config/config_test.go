package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("expected default port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Worker.PoolSize < 1 || cfg.Worker.QueueSize < 0 {
		t.Errorf("unexpected worker defaults: %+v", cfg.Worker)
	}
	// A queued 30s run must still be answered before the write deadline.
	if cfg.Worker.QueueTimeout <= 0 || cfg.Worker.QueueTimeout+30*time.Second >= cfg.Server.WriteTimeout {
		t.Errorf("queue timeout %s does not fit write timeout %s", cfg.Worker.QueueTimeout, cfg.Server.WriteTimeout)
	}
	if !cfg.Realtime.LegacyCodeAlias {
		t.Error("expected the legacy code alias to be on by default")
	}
	if cfg.Auth.RequireForRun {
		t.Error("expected run routes to be open by default")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("WORKER_POOL_SIZE", "8")
	t.Setenv("WORKER_QUEUE_TIMEOUT", "5s")
	t.Setenv("SANDBOX_ENABLE_DOCKER", "false")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("AUTH_REQUIRE_FOR_RUN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Worker.PoolSize != 8 {
		t.Errorf("expected pool size 8, got %d", cfg.Worker.PoolSize)
	}
	if cfg.Worker.QueueTimeout != 5*time.Second {
		t.Errorf("expected queue timeout 5s, got %s", cfg.Worker.QueueTimeout)
	}
	if cfg.Sandbox.EnableDocker {
		t.Error("expected docker to be disabled")
	}
	if cfg.Redis.URL != "redis://cache:6379/1" {
		t.Errorf("unexpected redis url %q", cfg.Redis.URL)
	}
	if !cfg.Auth.RequireForRun {
		t.Error("expected run routes to require auth")
	}
}
