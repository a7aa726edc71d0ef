package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := DefaultAppConfig()
	assert.Equal(t, def.API.BaseURL, cfg.API.BaseURL)
	assert.Equal(t, SessionBackendKeyring, cfg.Session.Backend)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, DefaultPollIntervalSec, cfg.Notifications.PollIntervalSec)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("HAULBOOK_API_BASE_URL", "https://records.example.com/api")
	t.Setenv("HAULBOOK_SESSION_BACKEND", "memory")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://records.example.com/api/", cfg.API.BaseURL)
	assert.Equal(t, SessionBackendMemory, cfg.Session.Backend)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Session.Backend = SessionBackendSQLite
	cfg.Display.DarkMode = true
	cfg.Notifications.PollIntervalSec = 15

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, SessionBackendSQLite, loaded.Session.Backend)
	assert.True(t, loaded.Display.DarkMode)
	assert.Equal(t, 15, loaded.Notifications.PollIntervalSec)
}

func TestLoadConfigFixesBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "api:\n  timeout_sec: -4\nnotifications:\n  poll_interval_sec: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, DefaultPollIntervalSec, cfg.Notifications.PollIntervalSec)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  backend: floppy\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, `unknown session backend "floppy"`)
}
