package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/tidaldj/internal/services"
	"github.com/desertthunder/tidaldj/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	var tidalService services.Service

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	if config.Credentials.Tidal.ClientID != "" {
		if svc, err := services.NewTidalService(services.TidalOpts{
			Config: config,
			Logger: logger,
		}); err == nil {
			tidalService = svc
		} else {
			logger.Warn("TIDAL service unavailable", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Tidal:  tidalService,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "tdj",
		Usage:    "Browse your TIDAL library and prep a two-deck set",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrAuthCancelled) {
			logger.Warn("cancelled")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
