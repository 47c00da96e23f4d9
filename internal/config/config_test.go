package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdir into an empty dir so a developer's .env or configs/ never leaks in.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, env := range []string{"CASTING_CONFIG", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SOURCES", "SEEN_BACKEND", "REDIS_URL"} {
		t.Setenv(env, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Seen.Backend)
	assert.Equal(t, "data/seen_listings.json", cfg.Seen.Path)
	assert.True(t, cfg.Enabled("craigslist"))
	assert.False(t, cfg.Enabled("facebook"))
	assert.Equal(t, []string{"actingjobs", "filmmakers"}, cfg.RedditSubreddits)
	assert.Equal(t, 10*time.Minute, cfg.ScrapeTimeout)
	assert.Equal(t, "0 8 * * *", cfg.Schedule)
	assert.False(t, cfg.EmailConfigured())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
telegram_token: from-file
telegram_chat_id: 42
seen:
  backend: sqlite
sources:
  reddit: true
http:
  min_delay: 1s
  max_delay: 3s
email_retry_delay: 30s
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TelegramToken)
	assert.Equal(t, int64(42), cfg.TelegramChatID)
	assert.Equal(t, "data/seen_listings.db", cfg.Seen.Path)
	assert.True(t, cfg.Enabled("reddit"))
	assert.True(t, cfg.Enabled("craigslist"), "unlisted sources keep their default")
	assert.Equal(t, time.Second, cfg.HTTP.MinDelay)
	assert.Equal(t, 30*time.Second, cfg.EmailRetryDelay)
}

func TestSourcesEnvReplacesToggles(t *testing.T) {
	isolate(t)
	t.Setenv("SOURCES", "reddit, backstage")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Enabled("reddit"))
	assert.True(t, cfg.Enabled("backstage"))
	assert.False(t, cfg.Enabled("craigslist"))
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "seen: [unterminated"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("bad chat id", func(t *testing.T) {
		t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("redis without url", func(t *testing.T) {
		_, err := Load(writeConfig(t, "seen:\n  backend: redis\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Load(writeConfig(t, "seen:\n  backend: mongo\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("negative retries", func(t *testing.T) {
		_, err := Load(writeConfig(t, "http:\n  max_retries: -1\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("telegram half configured", func(t *testing.T) {
		_, err := Load(writeConfig(t, "telegram_token: abc\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})
}
