package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"xpense/internal/amqp"
	"xpense/internal/cli"
	"xpense/internal/config"
	applog "xpense/internal/log"
	"xpense/internal/sheets"
	gsheet "xpense/internal/sheets/google"
	mem "xpense/internal/sheets/memory"
	"xpense/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	var configFile, logLevel, logFormat string

	cmd := &cobra.Command{
		Use:          "xpense-worker",
		Short:        "Export recorded expenses to Google Sheets",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadConfig(configFile)
			if err != nil {
				return err
			}
			logger, err := cli.SetupLogger(cfg, applog.ComponentWorker, logLevel, logFormat)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides LOG_FORMAT")
	return cmd
}

func newWriter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.ExpenseWriter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, rows are only logged")
		return mem.New(), nil
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		Location:      loc,
		Credentials: gsheet.Credentials{
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			OAuthClientFile:    cfg.GoogleOAuthClientFile,
			OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("Starting xpense-worker")

	ctx, cancel := cli.SignalContext(ctx, logger)
	defer cancel()
	ctx = applog.NewContext(ctx, logger)

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}

	writer, err := newWriter(ctx, cfg, logger)
	if err != nil {
		repo.Close()
		return err
	}

	syncWorker := worker.NewSyncWorker(repo, writer, worker.Config{
		BatchSize: cfg.SyncBatchSize,
		Interval:  cfg.SyncInterval,
	})

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			repo.Close()
			return fmt.Errorf("connect to AMQP: %w", err)
		}
	} else {
		logger.Info("AMQP disabled - relying on the periodic sweep", "interval", cfg.SyncInterval)
	}

	if err := syncWorker.Start(ctx); err != nil {
		repo.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeExpenseCreated(gctx, syncWorker.HandleExpenseCreated)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	runErr := g.Wait()

	steps := []func(context.Context) error{syncWorker.Stop}
	if consumer != nil {
		steps = append(steps, func(context.Context) error { return consumer.Close() })
	}
	steps = append(steps, func(context.Context) error { return repo.Close() })

	return errors.Join(runErr, cli.Shutdown(logger, shutdownTimeout, steps...))
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
