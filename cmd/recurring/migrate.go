package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"recurring/internal/cli"
	"recurring/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Migrations also run automatically whenever the database is opened.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath, err := migrationDBPath()
			if err != nil {
				return err
			}

			slog.Info("Starting database migration", "database", dbPath)
			v, err := storage.RunMigrations(dbPath)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Database schema is at version %s: %s", v, dbPath)))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath, err := migrationDBPath()
			if err != nil {
				return err
			}
			v, err := storage.MigrationStatus(dbPath)
			if err != nil {
				return err
			}
			msg := "Schema version " + v.String()
			if v.Dirty {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(msg))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(msg))
			return nil
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			dbPath, err := migrationDBPath()
			if err != nil {
				return err
			}
			v, err := storage.RollbackMigrations(dbPath, steps)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("Rolled back %d step(s), schema version %s", steps, v)))
			return nil
		},
	}
	down.Flags().Int("steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)
	return cmd
}

func migrationDBPath() (string, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig(configFile)
	if err != nil {
		return "", err
	}
	return cfg.SQLiteDBPath, nil
}
