package main

import (
	"commute-forecast/internal/config"
	"commute-forecast/internal/platform/obs"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// main is the application composition root.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := newApp()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

// newApp loads configuration before any command runs and dispatches to
// run, serve and init-cache.
func newApp() *cli.App {
	var cfg *config.Config

	return &cli.App{
		Name:        "commute",
		Usage:       "forecast commute durations for the week ahead",
		Description: "Samples traffic-aware travel times for the home/work routes and charts them by weekday",
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			obs.SetupLogger(os.Stdout, cfg.LogFormat, cfg.Debug)
			return nil
		},
		Commands: []*cli.Command{
			runCommand(&cfg),
			serveCommand(&cfg),
			initCacheCommand(&cfg),
		},
	}
}
