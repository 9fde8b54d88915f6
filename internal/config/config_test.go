package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "running", cfg.Gathering.ActivityType)
	assert.Equal(t, 5, cfg.Gathering.OverfetchMultiplier)
	assert.Equal(t, 50, cfg.Gathering.MaxFetchLimit)
	assert.Equal(t, 3, cfg.Gathering.RecentRunsCount)
	assert.Equal(t, "http://llm-service:8000", cfg.LLM.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 30*time.Second, cfg.PerActivityTimeout())
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
gathering:
  overfetch_multiplier: 3
  max_fetch_limit: 20
redis:
  addr: redis:6380
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Gathering.OverfetchMultiplier)
	assert.Equal(t, 20, cfg.Gathering.MaxFetchLimit)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	// Untouched keys keep defaults.
	assert.Equal(t, "running", cfg.Gathering.ActivityType)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PACE42_SERVER_PORT", "7070")
	t.Setenv("PACE42_REDIS_ADDR", "cache:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}
