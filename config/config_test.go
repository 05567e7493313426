package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.Equal(t, 2000, cfg.MoveTimeMs)
	assert.Equal(t, 20, cfg.CachePowerOf2)
	assert.Equal(t, "https://api.chess.com/pub", cfg.ArchiveBaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HINDSIGHT_MAX_DEPTH", "7")
	t.Setenv("HINDSIGHT_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxDepth)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2000, cfg.MoveTimeMs)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hindsight.yaml")
	err := os.WriteFile(path, []byte("max-depth: 6\nmove-time-ms: 500\n"), 0o644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MaxDepth)
	assert.Equal(t, 500, cfg.MoveTimeMs)
	assert.Equal(t, 20, cfg.CachePowerOf2)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
