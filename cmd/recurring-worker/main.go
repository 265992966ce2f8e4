package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"recurring/internal/cli"
	"recurring/internal/log"
	"recurring/internal/worker"
)

var (
	configFile string
	once       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "recurring-worker",
		Short:        "Keep recurring transactions materialized up to a rolling horizon",
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			return run()
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "optional YAML config file")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(configFile)
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)
	if err != nil {
		return err
	}
	logger.Info("Starting recurring-worker")

	sqliteRepo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer sqliteRepo.Close()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	svc := cli.NewService(logger, cfg, sqliteRepo, publisher)
	w := worker.NewGenerationWorker(sqliteRepo, svc, worker.Options{
		LookaheadMonths:  cfg.LookaheadMonths,
		Concurrency:      cfg.WorkerConcurrency,
		DefaultAccountID: cfg.DefaultAccountID,
	}, logger)

	logger.Info("Recurring generation configured",
		"interval", cfg.ProcessorInterval,
		"lookahead_months", cfg.LookaheadMonths,
		"concurrency", cfg.WorkerConcurrency,
		"clamp_policy", cfg.Policy().String(),
		"sqlite_db", cfg.SQLiteDBPath)

	// Shutdown waits for the running sweep before the deferred closes run.
	runDone := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() { <-runDone })

	if once {
		defer close(runDone)
		summary, err := w.RunOnce(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("generation sweep: %w", err)
		}
		logger.Info("Single sweep complete",
			log.FieldTraceID, summary.TraceID,
			log.FieldHorizon, summary.Horizon.String(),
			log.FieldInserted, summary.Generated,
			"failed", summary.Failed,
			"backlogged", summary.Backlogged)
		return nil
	}

	go func() {
		defer close(runDone)
		w.Run(ctx, cfg.ProcessorInterval)
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
	return nil
}
