package main

import (
	"bytes"
	"commute-forecast/internal/api"
	"commute-forecast/internal/api/handlers"
	"commute-forecast/internal/chart"
	"commute-forecast/internal/config"
	"commute-forecast/internal/platform/metrics"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func serveCommand(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "sample both routes once, then serve the charts over HTTP",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", EnvVars: []string{"LISTEN_ADDR"}, Usage: "listen address"},
		}, fetchFlags...),
		Action: func(c *cli.Context) error {
			conf := *cfg
			if err := applyFlags(c, conf); err != nil {
				return err
			}
			return serve(c.Context, conf, c.String("addr"))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, addr string) error {
	mcol := metrics.NewCollector(cfg.FetchConcurrency)

	pipeline, closeCache, err := newPipeline(ctx, cfg, mcol)
	if err != nil {
		return err
	}
	defer closeCache()

	store := handlers.NewChartStore()
	for _, route := range cfg.Routes() {
		table, err := pipeline.Run(ctx, route)
		if err != nil {
			return err
		}
		fig, err := chart.Render(table, route.Title)
		if err != nil {
			return fmt.Errorf("render %s: %w", route.Name, err)
		}
		var buf bytes.Buffer
		if err := fig.WritePNG(&buf); err != nil {
			return err
		}
		store.Put(route.Name, buf.Bytes())
	}

	// Timeouts are tuned for serving small in-memory images.
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(store, mcol.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
