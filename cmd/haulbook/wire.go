package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/app"
	"github.com/nhle/haulbook/internal/auth"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/notify"
	"github.com/nhle/haulbook/internal/session"
	"github.com/nhle/haulbook/internal/store"
)

// options are the command-line flags.
type options struct {
	ConfigPath     string
	SessionBackend string
	Debug          bool
}

func newConfig(opts options) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.SessionBackend != "" {
		switch opts.SessionBackend {
		case model.SessionBackendKeyring, model.SessionBackendSQLite, model.SessionBackendMemory:
			cfg.Session.Backend = opts.SessionBackend
		default:
			return nil, fmt.Errorf("unknown session backend %q", opts.SessionBackend)
		}
	}
	return cfg, nil
}

// newLogger writes JSON logs to the configured file. The terminal belongs
// to the TUI.
func newLogger(cfg *model.AppConfig, opts options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{cfg.Log.Path}
	zc.ErrorOutputPaths = []string{cfg.Log.Path}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func newSessionBackend(lc fx.Lifecycle, cfg *model.AppConfig, logger *zap.Logger) (session.Backend, error) {
	logger.Info("session backend", zap.String("backend", cfg.Session.Backend))

	switch cfg.Session.Backend {
	case model.SessionBackendMemory:
		return session.NewMemoryBackend(), nil

	case model.SessionBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Session.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		s, err := store.NewSQLiteStore(cfg.Session.DBPath)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return s.Close() },
		})
		return session.NewStoreBackend(s), nil
	}

	return session.OpenKeyring(cfg.Session.KeyringDir)
}

func newSessionStore(b session.Backend, logger *zap.Logger) *session.Store {
	return session.NewStore(b, logger)
}

func newAPIClient(cfg *model.AppConfig, sessions *session.Store, logger *zap.Logger) *api.Client {
	return api.NewClient(
		cfg.API.BaseURL,
		sessions.AccessToken,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithLogger(logger),
	)
}

func newGateway(c *api.Client, sessions *session.Store, logger *zap.Logger) *auth.Gateway {
	return auth.NewGateway(c, sessions, logger)
}

func newPoller(cfg *model.AppConfig, c *api.Client, logger *zap.Logger) *notify.Poller {
	cache := notify.NewCache(c, logger)
	interval := time.Duration(cfg.Notifications.PollIntervalSec) * time.Second
	return notify.NewPoller(cache, interval, logger)
}

func newRootModel(
	cfg *model.AppConfig,
	opts options,
	sessions *session.Store,
	gateway *auth.Gateway,
	c *api.Client,
	poller *notify.Poller,
	logger *zap.Logger,
) app.Model {
	return app.New(app.Deps{
		Config: cfg,
		SaveConfig: func(next *model.AppConfig) error {
			return model.SaveConfig(opts.ConfigPath, next)
		},
		Sessions: sessions,
		Gateway:  gateway,
		API:      c,
		Poller:   poller,
		Logger:   logger,
	})
}

func newProgram(m app.Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// registerHooks runs the TUI for the lifetime of the fx app and shuts the
// app down when the user quits.
func registerHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	p *tea.Program,
	poller *notify.Poller,
	logger *zap.Logger,
) {
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if _, err := p.Run(); err != nil {
					logger.Error("program exited", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			poller.Stop()
			p.Quit()
			select {
			case <-done:
			case <-ctx.Done():
			}
			_ = logger.Sync()
			return nil
		},
	})
}
