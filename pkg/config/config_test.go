package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohorthq/cohort/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("COHORT_POSTGRES_URL", "postgres://localhost/cohort")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.True(t, cfg.Server.CookieSecure)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.Audit.Retention)
	assert.Equal(t, "@hourly", cfg.Audit.JanitorSchedule)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("COHORT_POSTGRES_URL", "postgres://localhost/cohort")
	t.Setenv("COHORT_PORT", "9999")
	t.Setenv("COHORT_LOG_LEVEL", "debug")
	t.Setenv("COHORT_COOKIE_SECURE", "false")
	t.Setenv("COHORT_REDIS_CACHE_TTL", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Server.CookieSecure)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("missing postgres URL fails", func(t *testing.T) {
		t.Setenv("COHORT_POSTGRES_URL", "")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres URL")
	})

	t.Run("port collision fails", func(t *testing.T) {
		t.Setenv("COHORT_POSTGRES_URL", "postgres://localhost/cohort")
		t.Setenv("COHORT_PORT", "8080")
		t.Setenv("COHORT_HEALTH_PORT", "8080")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be different")
	})

	t.Run("OIDC issuer without client ID fails", func(t *testing.T) {
		t.Setenv("COHORT_POSTGRES_URL", "postgres://localhost/cohort")
		t.Setenv("COHORT_OIDC_ISSUER_URL", "https://issuer.example.com")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client ID")
	})
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cohort.yaml")
	content := `
server:
  port: "7070"
  cookie_secure: false
redis:
  addr: "localhost:6379"
  cache_ttl: "1m"
audit:
  retention: "720h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("COHORT_POSTGRES_URL", "postgres://localhost/cohort")
	t.Setenv("COHORT_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.False(t, cfg.Server.CookieSecure)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 720*time.Hour, cfg.Audit.Retention)
	// Env values the file does not mention survive
	assert.Equal(t, "9090", cfg.Server.HealthPort)
}

func TestLoadConfig_FileOverlayErrors(t *testing.T) {
	t.Run("missing file fails", func(t *testing.T) {
		t.Setenv("COHORT_POSTGRES_URL", "postgres://localhost/cohort")
		t.Setenv("COHORT_CONFIG_FILE", "/nonexistent/cohort.yaml")

		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("bad duration fails", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cohort.yaml")
		require.NoError(t, os.WriteFile(path, []byte("redis:\n  cache_ttl: \"soon\"\n"), 0o600))

		t.Setenv("COHORT_POSTGRES_URL", "postgres://localhost/cohort")
		t.Setenv("COHORT_CONFIG_FILE", path)

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache_ttl")
	})
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cohort.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"7070\"\n"), 0o600))

	t.Setenv("COHORT_POSTGRES_URL", "postgres://localhost/cohort")
	t.Setenv("COHORT_CONFIG_FILE", path)

	stop := make(chan struct{})
	defer close(stop)

	reloaded := make(chan *Config, 1)
	go func() {
		_ = Watch(path, stop, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		}, nil)
	}()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"7171\"\n"), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "7171", cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
