package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	rootCmd    = &cobra.Command{
		Use:          "recurring",
		Short:        "Manage recurring transaction templates and their occurrences",
		SilenceUsage: true,
		Long: `recurring manages templates for repeating income and expenses and
materializes their occurrences into the database up to a horizon.

Passes are idempotent: running materialize twice for the same month
inserts nothing the second time.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(templatesCmd())
	rootCmd.AddCommand(materializeCmd())
	rootCmd.AddCommand(occurrencesCmd())
	rootCmd.AddCommand(editCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
