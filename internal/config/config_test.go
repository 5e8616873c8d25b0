package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8087", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, "mailer.queue.awaiting", cfg.Queues.Awaiting)
	assert.Equal(t, "mailer.queue.processing", cfg.Queues.Processing)
	assert.Equal(t, "mailer.queue.retrying", cfg.Queues.Retrying)
	assert.Equal(t, "mailer.queue.success", cfg.Queues.Success)
	assert.Equal(t, "mailer.queue.failure", cfg.Queues.Failure)

	assert.Equal(t, "local", cfg.SMTP.Encryption)
	assert.EqualValues(t, 3, cfg.Mailer.MaxRetrials)
	assert.Equal(t, 4, cfg.Mailer.ProcessingPollers)
	assert.Equal(t, 200*time.Millisecond, cfg.Mailer.PollInterval)

	assert.False(t, cfg.Events.Enabled())
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
mailer:
  max_retrials: 5
  processing_pollers: 8
smtp:
  encryption: "starttls"
  username: "mailer"
  password: "secret"
events:
  brokers: ["127.0.0.1:9092"]
  topic: "mailer.events"
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.EqualValues(t, 5, cfg.Mailer.MaxRetrials)
	assert.Equal(t, 8, cfg.Mailer.ProcessingPollers)
	assert.Equal(t, "starttls", cfg.SMTP.Encryption)
	assert.True(t, cfg.Events.Enabled())

	// untouched keys keep their defaults
	assert.Equal(t, "mailer.queue.processing", cfg.Queues.Processing)
	assert.Equal(t, 200*time.Millisecond, cfg.Mailer.PollInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MAILER_SMTP_HOST", "smtp.internal")
	t.Setenv("MAILER_MAILER_MAX_RETRIALS", "7")
	t.Setenv("MAILER_QUEUES_AWAITING", "other.awaiting")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "smtp.internal", cfg.SMTP.Host)
	assert.EqualValues(t, 7, cfg.Mailer.MaxRetrials)
	assert.Equal(t, "other.awaiting", cfg.Queues.Awaiting)

	// untouched keys keep their defaults
	assert.Equal(t, 1025, cfg.SMTP.Port)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, cfg.Mailer.MaxRetrials)
}
