package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				db, err := postgres.Open(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()

				if err := postgres.Migrate(cmd.Context(), db); err != nil {
					return err
				}
				version, err := postgres.MigrationVersion(cmd.Context(), db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				db, err := postgres.Open(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()

				version, err := postgres.MigrationVersion(cmd.Context(), db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return nil
			},
		},
	)
	return cmd
}
