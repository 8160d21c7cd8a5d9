package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, "monitor", cfg.Database.Name)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "notifications", cfg.Search.Index)
	assert.False(t, cfg.Search.Enabled())
	assert.Equal(t, 60*time.Second, cfg.Watcher.SyncInterval)
	assert.Equal(t, time.Hour, cfg.Watcher.SweepInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.Watcher.Retention)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Telegram.AllowedIDs)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "admin-token")
	t.Setenv("WATCHER_BOT_TOKEN", "watcher-token")
	t.Setenv("NOTIFICATION_CHAT_ID", "-100123")
	t.Setenv("ALLOWED_IDS", "1, 2,,3")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("MEILI_HOST", "http://meili:7700")
	t.Setenv("WATCHER_SYNC_INTERVAL", "30s")
	t.Setenv("WATCHER_RETENTION", "48h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "admin-token", cfg.Telegram.BotToken)
	assert.Equal(t, "watcher-token", cfg.Telegram.WatcherToken)
	assert.Equal(t, int64(-100123), cfg.Telegram.NotificationChatID)
	assert.Equal(t, []int64{1, 2, 3}, cfg.Telegram.AllowedIDs)
	assert.Equal(t, "mongodb://db:27017", cfg.Database.URI)
	assert.True(t, cfg.Search.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Watcher.SyncInterval)
	assert.Equal(t, 48*time.Hour, cfg.Watcher.Retention)

	require.NoError(t, cfg.ValidateWatch())
	require.NoError(t, cfg.ValidateAdmin())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  name: from_file
  use_in_memory: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from_file", cfg.Database.Name)
	assert.True(t, cfg.Database.UseInMemory)
	assert.Equal(t, "warn", cfg.Log.Level, "environment wins over the file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadAllowedIDs(t *testing.T) {
	t.Setenv("ALLOWED_IDS", "1,abc")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.EqualError(t, cfg.ValidateWatch(), "WATCHER_BOT_TOKEN is not set")
	assert.EqualError(t, cfg.ValidateAdmin(), "BOT_TOKEN is not set")

	cfg.Telegram.WatcherToken = "w"
	cfg.Telegram.BotToken = "b"
	assert.EqualError(t, cfg.ValidateWatch(), "NOTIFICATION_CHAT_ID is not set")
	assert.EqualError(t, cfg.ValidateAdmin(), "ALLOWED_IDS is empty, nobody could use the admin bot")

	cfg.Telegram.NotificationChatID = -1
	cfg.Telegram.AllowedIDs = []int64{1}
	assert.EqualError(t, cfg.ValidateWatch(), "MONGODB_URI is not set")

	cfg.Database.UseInMemory = true
	assert.NoError(t, cfg.ValidateWatch())
	assert.NoError(t, cfg.ValidateAdmin())
}
