package main

import (
	"context"

	"github.com/spf13/cobra"

	"youthportal/api/internal/config"
	"youthportal/api/internal/database"
	"youthportal/api/internal/log"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := log.New(cfg.Environment)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}
			logger.Info().Msg("migrations applied")
			return nil
		},
	}
}
