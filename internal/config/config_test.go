package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
  mode: release
log:
  level: debug
redis:
  addr: localhost:6379
quiz:
  ttl: 5m
auth:
  jwt_secret: from-file
  token_ttl: 24h
leaderboard:
  default_limit: 25
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.Mode != "release" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Auth.JWTSecret != "from-file" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Leaderboard.DefaultLimit != 25 {
		t.Fatalf("expected leaderboard limit 25, got %d", cfg.Leaderboard.DefaultLimit)
	}
	if got := TTLDuration(cfg.Quiz.TTL, time.Minute); got != 5*time.Minute {
		t.Fatalf("expected 5m quiz ttl, got %v", got)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  jwt_secret: from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "postgres://quiz@db/quiz")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" || cfg.Postgres.URL != "postgres://quiz@db/quiz" || cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
	if cfg.Server.Port != "" || cfg.Auth.JWTSecret != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
