package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookbound/library/internal/infrastructure/db/postgres/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			db, err := openDB(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := migrations.Run(ctx, db.Pool, log)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return nil
		},
	}
}
