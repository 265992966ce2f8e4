// Package cli provides common CLI initialization utilities shared by
// cmd/recurring and cmd/recurring-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"recurring/internal/amqp"
	"recurring/internal/config"
	"recurring/internal/log"
	"recurring/internal/services"
	"recurring/internal/storage"
)

// SetupLogger initializes structured logging from the configured level and
// format and sets it as the default logger.
func SetupLogger(level, format, component string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := log.DefaultConfig()
	cfg.Level = lvl
	cfg.Format = format
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, from configFile when set, and
// validates it.
func LoadAndValidateConfig(configFile string) (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitSQLite initializes a SQLite repository with the given path.
func InitSQLite(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		return nil, err
	}
	return sqliteRepo, nil
}

// InitPublisher connects to AMQP when configured. It returns a nil publisher
// when AMQP is disabled or unreachable; generation keeps running either way.
func InitPublisher(logger *log.Logger, cfg *config.Config) (services.Publisher, func()) {
	if !cfg.AMQPEnabled() {
		logger.Warn("AMQP_URL not set, occurrence events disabled")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP, occurrence events disabled", log.FieldError, err)
		return nil, func() {}
	}
	logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
}

// NewService builds the recurring service from configuration.
func NewService(logger *log.Logger, cfg *config.Config, store services.Store, pub services.Publisher) *services.RecurringService {
	return services.NewRecurringService(store, store, pub,
		services.WithClampPolicy(cfg.Policy()),
		services.WithMaxSteps(cfg.MaxStepsPerPass),
		services.WithLogger(logger.WithComponent(log.ComponentMaterializer)),
	)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete. cleanup runs after
// the context is cancelled and may block, up to timeout, until in-flight
// work has finished.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return shutdownOn(sigChan, logger, timeout, cleanup)
}

func shutdownOn(sigChan <-chan os.Signal, logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
