package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/migrations"
)

var migrateCommands = []string{
	migrations.CommandUp,
	migrations.CommandDown,
	migrations.CommandReset,
	migrations.CommandStatus,
	migrations.CommandVersion,
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|reset|status|version",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			appLogger, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			ctx := cmd.Context()
			db, dialect, err := openDatabase(ctx, cfg.Database, appLogger)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					appLogger.Error("Error closing database connection", "error", err)
				}
			}()

			command := args[0]
			if command == migrations.CommandVersion {
				v, err := migrations.CurrentVersion(ctx, db, dialect.Name)
				if err != nil {
					return fmt.Errorf("failed to read schema version: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}
			return migrations.Run(ctx, db, dialect.Name, command, appLogger)
		},
	}
}
