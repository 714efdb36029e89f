package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, dir, contents string) (*Config, error) {
	t.Helper()
	path := filepath.Join(dir, "courier.json")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	return Load(path)
}

func TestLoadDefaultsWithEnvIdentity(t *testing.T) {
	t.Setenv("COURIER_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("COURIER_CHAT_ID", "4242")

	cfg, err := loadFrom(t, t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(4242), cfg.ChatID)
	assert.Equal(t, 10*time.Minute, cfg.UrgentTimeout())
	assert.Equal(t, 3*time.Minute, cfg.RelaxedTimeout())
	assert.Equal(t, 25*time.Second, cfg.LongPollWait())
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, 120*time.Second, cfg.ClockSkew())
	assert.True(t, cfg.ForceReplyEnabled())
	assert.NotEmpty(t, cfg.FallbackReply)
}

func TestLoadFileOverlaidByEnv(t *testing.T) {
	t.Setenv("COURIER_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("COURIER_CHAT_ID", "4242")
	t.Setenv("COURIER_RELAXED_TIMEOUT_SEC", "90")

	cfg, err := loadFrom(t, t.TempDir(), `{
		"urgent_timeout_sec": 1200,
		"relaxed_timeout_sec": 60,
		"force_reply": false,
		"fallback_reply": "ask again later"
	}`)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Minute, cfg.UrgentTimeout())
	// Env beats file.
	assert.Equal(t, 90*time.Second, cfg.RelaxedTimeout())
	assert.False(t, cfg.ForceReplyEnabled())
	assert.Equal(t, "ask again later", cfg.FallbackReply)
}

func TestLoadIgnoresNonNumericEnv(t *testing.T) {
	t.Setenv("COURIER_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("COURIER_CHAT_ID", "4242")
	t.Setenv("COURIER_URGENT_TIMEOUT_SEC", "ten minutes")

	cfg, err := loadFrom(t, t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.UrgentTimeout())
}

func TestLoadClampsNonPositiveValues(t *testing.T) {
	t.Setenv("COURIER_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("COURIER_CHAT_ID", "4242")

	cfg, err := loadFrom(t, t.TempDir(), `{"long_poll_sec": -5, "poll_interval_ms": 0}`)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Second, cfg.LongPollWait())
	assert.Equal(t, time.Second, cfg.PollInterval())
}

func TestLoadRejectsMissingIdentity(t *testing.T) {
	t.Setenv("COURIER_TELEGRAM_TOKEN", "")
	t.Setenv("COURIER_CHAT_ID", "")

	_, err := loadFrom(t, t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram_token")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	t.Setenv("COURIER_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("COURIER_CHAT_ID", "4242")

	_, err := loadFrom(t, t.TempDir(), `{"chat_id": `)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
