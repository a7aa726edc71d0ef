package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/nhle/haulbook/internal/model"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	backend := flag.String("session-backend", "", "override session.backend (keyring, sqlite or memory)")
	debug := flag.Bool("debug", false, "write debug-level logs")
	flag.Parse()

	opts := options{
		ConfigPath:     *configPath,
		SessionBackend: *backend,
		Debug:          *debug,
	}

	app := fx.New(
		fx.Supply(opts),
		fx.Provide(
			newConfig,
			newLogger,
			newSessionBackend,
			newSessionStore,
			newAPIClient,
			newGateway,
			newPoller,
			newRootModel,
			newProgram,
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		fx.Invoke(registerHooks),
	)

	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "haulbook: %v\n", err)
		os.Exit(1)
	}
	app.Run()
}
