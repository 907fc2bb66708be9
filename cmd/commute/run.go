package main

import (
	"commute-forecast/internal/chart"
	"commute-forecast/internal/config"
	"commute-forecast/internal/domain"
	"commute-forecast/internal/platform/metrics"
	"commute-forecast/internal/services"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func runCommand(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "sample both commute routes and write one chart per route",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "output-dir", Usage: "directory for the charts (overrides OUTPUT_DIR)"},
			&cli.StringFlag{Name: "format", Usage: "png or svg (overrides CHART_FORMAT)"},
		}, fetchFlags...),
		Action: func(c *cli.Context) error {
			conf := *cfg
			if err := applyFlags(c, conf); err != nil {
				return err
			}
			if c.IsSet("output-dir") {
				conf.OutputDir = c.String("output-dir")
			}
			if c.IsSet("format") {
				conf.ChartFormat = c.String("format")
				if conf.ChartFormat != "png" && conf.ChartFormat != "svg" {
					return fmt.Errorf("invalid --format: %q", conf.ChartFormat)
				}
			}
			return run(c.Context, conf)
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	mcol := metrics.NewCollector(cfg.FetchConcurrency)
	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	pipeline, closeCache, err := newPipeline(ctx, cfg, mcol)
	if err != nil {
		return err
	}
	defer closeCache()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir %q: %w", cfg.OutputDir, err)
	}

	for _, route := range cfg.Routes() {
		path, err := runRoute(ctx, pipeline, route, cfg.OutputDir, cfg.ChartFormat)
		if err != nil {
			return err
		}
		log.Info().Str("route", route.Name).Str("path", path).Msg("chart written")
	}

	return nil
}

// runRoute fills the table for one route and writes its chart.
// No file is created when the pipeline fails.
func runRoute(
	ctx context.Context,
	pipeline *services.Pipeline,
	route domain.Route,
	dir string,
	format string,
) (string, error) {
	table, err := pipeline.Run(ctx, route)
	if err != nil {
		return "", err
	}

	fig, err := chart.Render(table, route.Title)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", route.Name, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("commute-%s.%s", route.Name, format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if format == "svg" {
		err = fig.WriteSVG(f)
	} else {
		err = fig.WritePNG(f)
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, f.Close()
}
