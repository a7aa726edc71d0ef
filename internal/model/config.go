package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Session backend names accepted in SessionConfig.Backend.
const (
	SessionBackendKeyring = "keyring"
	SessionBackendSQLite  = "sqlite"
	SessionBackendMemory  = "memory"
)

// DefaultPollIntervalSec is how often unread notifications are reconciled
// with the server.
const DefaultPollIntervalSec = 60

// APIConfig holds connection settings for the records API.
type APIConfig struct {
	// BaseURL is the API root, including the /api/ prefix.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SessionConfig selects where the signed-in session is persisted.
type SessionConfig struct {
	// Backend is one of "keyring", "sqlite" or "memory".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// DBPath is the SQLite file used by the sqlite backend.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// KeyringDir is where the keyring file backend keeps its data when
	// no OS keychain is available.
	KeyringDir string `mapstructure:"keyring_dir" yaml:"keyring_dir"`
}

// NotificationConfig controls background polling of notifications.
type NotificationConfig struct {
	Enabled         bool `mapstructure:"enabled" yaml:"enabled"`
	PollIntervalSec int  `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	DarkMode bool   `mapstructure:"dark_mode" yaml:"dark_mode"`
}

// LogConfig controls the file logger. The TUI owns the terminal, so logs
// never go to stdout.
type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig          `mapstructure:"api" yaml:"api"`
	Session       SessionConfig      `mapstructure:"session" yaml:"session"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
	Log           LogConfig          `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/haulbook, or the working directory when the
// home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "haulbook")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/haulbook/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://127.0.0.1:8000/api/",
			TimeoutSec: 30,
		},
		Session: SessionConfig{
			Backend:    SessionBackendKeyring,
			DBPath:     filepath.Join(dir, "haulbook.db"),
			KeyringDir: filepath.Join(dir, "credentials"),
		},
		Notifications: NotificationConfig{
			Enabled:         true,
			PollIntervalSec: DefaultPollIntervalSec,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
		Log: LogConfig{
			Path:  filepath.Join(dir, "haulbook.log"),
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values may be overridden by HAULBOOK_* environment variables
// (e.g. HAULBOOK_API_BASE_URL). If the file does not exist, defaults
// plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	defaults := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("haulbook")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and
	// AutomaticEnv can see every key.
	v.SetDefault("api.base_url", defaults.API.BaseURL)
	v.SetDefault("api.timeout_sec", defaults.API.TimeoutSec)
	v.SetDefault("session.backend", defaults.Session.Backend)
	v.SetDefault("session.db_path", defaults.Session.DBPath)
	v.SetDefault("session.keyring_dir", defaults.Session.KeyringDir)
	v.SetDefault("notifications.enabled", defaults.Notifications.Enabled)
	v.SetDefault("notifications.poll_interval_sec", defaults.Notifications.PollIntervalSec)
	v.SetDefault("display.theme", defaults.Display.Theme)
	v.SetDefault("display.dark_mode", defaults.Display.DarkMode)
	v.SetDefault("log.path", defaults.Log.Path)
	v.SetDefault("log.level", defaults.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		_, pathErr := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !pathErr && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaults
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notifications.PollIntervalSec <= 0 {
		cfg.Notifications.PollIntervalSec = DefaultPollIntervalSec
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = defaults.API.TimeoutSec
	}
	if !strings.HasSuffix(cfg.API.BaseURL, "/") {
		cfg.API.BaseURL += "/"
	}

	switch cfg.Session.Backend {
	case SessionBackendKeyring, SessionBackendSQLite, SessionBackendMemory:
	default:
		return nil, fmt.Errorf(
			"parsing config %s: unknown session backend %q",
			path, cfg.Session.Backend,
		)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("session", cfg.Session)
	v.Set("notifications", cfg.Notifications)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
