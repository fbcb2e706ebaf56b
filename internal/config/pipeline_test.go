package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestLoadFromEnv_MissingDatabaseURL(t *testing.T) {
	os.Clearenv()
	_, err := LoadFromEnv(discardLogger())
	assert.Error(t, err)
}

func TestLoadFromEnv_MissingProviderKey(t *testing.T) {
	os.Clearenv()
	t.Setenv("DATABASE_URL", "postgres://localhost/newsloop")
	_, err := LoadFromEnv(discardLogger())
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("DATABASE_URL", "postgres://localhost/newsloop")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := LoadFromEnv(discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 700, cfg.ApproveThreshold)
	assert.Equal(t, 30, cfg.IngestConcurrency)
	assert.Equal(t, "anthropic", cfg.AIProvider)
}

func TestLoadFromEnv_InvalidIntFallsBack(t *testing.T) {
	os.Clearenv()
	t.Setenv("DATABASE_URL", "postgres://localhost/newsloop")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("APPROVE_THRESHOLD", "not-a-number")

	cfg, err := LoadFromEnv(discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 700, cfg.ApproveThreshold)
}

func TestLoadFromEnv_UnknownProvider(t *testing.T) {
	os.Clearenv()
	t.Setenv("DATABASE_URL", "postgres://localhost/newsloop")
	t.Setenv("AI_PROVIDER", "cohere")

	_, err := LoadFromEnv(discardLogger())
	assert.ErrorContains(t, err, "unknown AI_PROVIDER")
}
