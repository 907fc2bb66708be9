package main

import (
	"commute-forecast/internal/adapters/cache"
	"commute-forecast/internal/config"
	"commute-forecast/internal/platform/db"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func initCacheCommand(cfg **config.Config) *cli.Command {
	return &cli.Command{
		Name:  "init-cache",
		Usage: "create the postgres prediction cache schema",
		Action: func(c *cli.Context) error {
			conf := *cfg
			if strings.TrimSpace(conf.DatabaseURL) == "" {
				return errors.New("DATABASE_URL is required")
			}

			sqlDB, err := db.Open(conf.DatabaseURL)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			log.Info().Msg("Initializing prediction cache schema...")
			if err := cache.InitSchema(c.Context, sqlDB); err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}
			log.Info().Msg("Schema ready.")

			return nil
		},
	}
}
