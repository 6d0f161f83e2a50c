package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/bootsift/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "boot.log", cfg.Input)
	assert.Equal(t, ".", cfg.OutDir)
	assert.Equal(t, "parallel", cfg.Mode)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 8192, cfg.MaxLineBytes)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Strict)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BOOTSIFT_INPUT", "/var/log/boot.log")
	t.Setenv("BOOTSIFT_MODE", "sequential")
	t.Setenv("BOOTSIFT_WORKERS", "3")
	t.Setenv("BOOTSIFT_STRICT", "true")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "/var/log/boot.log", cfg.Input)
	assert.Equal(t, "sequential", cfg.Mode)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.Strict)
}

func TestLoad_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BOOTSIFT_OUT_DIR=/from/dotenv\nBOOTSIFT_LOG_LEVEL=debug\n"), 0o644))
	t.Setenv("BOOTSIFT_LOG_LEVEL", "warn")
	// Registered for cleanup; the dotenv loader sets it process-wide.
	t.Setenv("BOOTSIFT_OUT_DIR", "")
	require.NoError(t, os.Unsetenv("BOOTSIFT_OUT_DIR"))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv", cfg.OutDir)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("BOOTSIFT_WORKERS", "many")

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestValidate(t *testing.T) {
	cfg := config.Config{Mode: "fast", Workers: -1, MaxLineBytes: 4, LogFormat: "xml"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	for _, want := range []string{"mode", "workers", "max line bytes", "log format"} {
		assert.Contains(t, err.Error(), want)
	}
}
