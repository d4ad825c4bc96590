package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GRADING_DATABASE_URL", "postgres://localhost:5432/grading")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "local", cfg.Queue.Mode)
	assert.Equal(t, 2, cfg.Queue.WorkerCount)
	assert.Equal(t, 100, cfg.Queue.QueueSize)
	assert.Equal(t, 2000, cfg.Queue.RegistryLimit)
	assert.Equal(t, "fuzzy", cfg.Grading.Strategy)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GRADING_DATABASE_URL", "postgres://localhost:5432/grading")
	t.Setenv("GRADING_QUEUE_MODE", "distributed")
	t.Setenv("GRADING_QUEUE_WORKER_COUNT", "8")
	t.Setenv("GRADING_SERVER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "distributed", cfg.Queue.Mode)
	assert.Equal(t, 8, cfg.Queue.WorkerCount)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoadRejectsMissingDatabaseURL(t *testing.T) {
	t.Setenv("GRADING_DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	t.Setenv("GRADING_DATABASE_URL", "postgres://localhost:5432/grading")
	t.Setenv("GRADING_QUEUE_MODE", "hybrid")

	_, err := Load()
	assert.Error(t, err)
}
