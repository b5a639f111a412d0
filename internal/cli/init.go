// Package cli provides the initialization shared by every expensetracker
// subcommand: environment, configuration, logging and the ledger itself.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger. An unknown level falls back to info.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from path and the environment
// and validates it.
func LoadAndValidateConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// brokerAttempts bounds how long startup waits for the AMQP broker.
var brokerAttempts = 3

// App bundles an opened ledger with the resources that must be released
// when the command finishes.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Ledger *ledger.Ledger

	backend *backend.BackendResult
	amqp    *amqp.Client
}

// OpenApp creates the record store for the configured backend, connects the
// optional AMQP notifier and opens the ledger.
func OpenApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, backend: result}

	opts := ledger.Options{
		Store:   result.Store,
		Summary: storage.NewSummaryFile(cfg.SummaryPath()),
		Logger:  logger,
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.WaitForBroker(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, brokerAttempts)
		if err != nil {
			// Notifications are optional; the ledger works without a broker.
			logger.WithComponent(log.ComponentCLI).Warn("AMQP unavailable, ledger events disabled",
				"attempts", brokerAttempts,
				log.FieldError, err)
		} else {
			app.amqp = client
			opts.Notifier = client
		}
	}

	app.Ledger = ledger.Open(ctx, opts)
	return app, nil
}

// Close releases the backend and the AMQP connection.
func (a *App) Close() error {
	var firstErr error
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			firstErr = err
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
