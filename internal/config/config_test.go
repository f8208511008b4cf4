package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://localhost/biosync"
logLevel: "debug"
redisAddr: "localhost:6379"
profileCacheTTL: "15m"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port: got %q", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://localhost/biosync" {
		t.Fatalf("databaseURL: got %q", cfg.DatabaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("logLevel: got %q", cfg.LogLevel)
	}
	if got := ParseProfileCacheTTL(cfg); got != 15*time.Minute {
		t.Fatalf("profileCacheTTL: got %v", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://localhost/biosync"
`)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://db.internal/biosync")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port override: got %q", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://db.internal/biosync" {
		t.Fatalf("databaseURL override: got %q", cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "redis.internal:6379" {
		t.Fatalf("redisAddr override: got %q", cfg.RedisAddr)
	}
}

func TestLoadMissingPort(t *testing.T) {
	path := writeConfig(t, `databaseURL: "postgres://localhost/biosync"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing port")
	}
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	path := writeConfig(t, `port: "8080"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing databaseURL")
	}
}

func TestLoadBadTTL(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://localhost/biosync"
profileCacheTTL: "soon"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for invalid profileCacheTTL")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseProfileCacheTTLDefaults(t *testing.T) {
	if got := ParseProfileCacheTTL(FileConfig{}); got != 0 {
		t.Fatalf("unset ttl: got %v", got)
	}
}
