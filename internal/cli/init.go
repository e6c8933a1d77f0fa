// Package cli holds the start-up and shutdown steps shared by cmd/xpense and
// cmd/xpense-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"xpense/internal/config"
	applog "xpense/internal/log"
	"xpense/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads .env, the environment and the optional config file.
func LoadConfig(configFile string) (*config.Config, error) {
	LoadEnvFile()
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	return config.Load(v), nil
}

// SetupLogger installs the process logger described by cfg. Flag values,
// when not empty, override the configured level and format.
func SetupLogger(cfg *config.Config, component, level, format string) (*applog.Logger, error) {
	lc := applog.DefaultConfig()
	lc.Component = component
	lc.Level = cfg.LogLevel
	lc.Format = cfg.LogFormat
	if level != "" {
		lc.Level = level
	}
	if format != "" {
		lc.Format = format
	}
	logger, err := applog.Setup(lc)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	return logger, nil
}

// InitSQLite opens the repository at dbPath, applying migrations.
func InitSQLite(logger *applog.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite repository at %s: %w", dbPath, err)
	}
	logger.Info("SQLite repository ready", "path", dbPath)
	return repo, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
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

// Shutdown runs every step under one deadline and reports all failures.
// Steps run in order; a failing step does not stop the ones after it.
func Shutdown(logger *applog.Logger, timeout time.Duration, steps ...func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if err := step(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Error("Shutdown completed with errors", applog.FieldError, err)
	} else {
		logger.Info("Shutdown complete")
	}
	return err
}
