package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LUMA_DB_PATH", "")
	t.Setenv("LUMA_DB_DEBUG", "")
	t.Setenv("LUMA_LOG_DIAGNOSTICS", "")
	t.Setenv("LUMA_MAX_FILE_BYTES", "")

	cfg := LoadConfig()
	assert.Equal(t, ".luma/luma.db", cfg.DBPath)
	assert.False(t, cfg.DBDebug)
	assert.False(t, cfg.LogDiagnostics)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxFileBytes)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("LUMA_DB_PATH", "/tmp/custom.db")
	t.Setenv("LUMA_DB_DEBUG", "true")
	t.Setenv("LUMA_LOG_DIAGNOSTICS", "1")
	t.Setenv("LUMA_MAX_FILE_BYTES", "1024")

	cfg := LoadConfig()
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.True(t, cfg.DBDebug)
	assert.True(t, cfg.LogDiagnostics)
	assert.Equal(t, int64(1024), cfg.MaxFileBytes)
}

func TestLoadConfigIgnoresInvalidValues(t *testing.T) {
	t.Setenv("LUMA_DB_PATH", "")
	t.Setenv("LUMA_DB_DEBUG", "maybe")
	t.Setenv("LUMA_MAX_FILE_BYTES", "-5")

	cfg := LoadConfig()
	assert.False(t, cfg.DBDebug)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxFileBytes)
}
