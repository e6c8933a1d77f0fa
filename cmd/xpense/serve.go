package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"xpense/internal/amqp"
	"xpense/internal/auth"
	"xpense/internal/cache"
	"xpense/internal/cli"
	"xpense/internal/core"
	apphttp "xpense/internal/http"
	"xpense/internal/services"
)

const (
	cacheSweepInterval = time.Minute
	shutdownTimeout    = 30 * time.Second
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}

	// Left nil when AMQP is not configured; the service then skips events.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			repo.Close()
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		publisher = client
		logger.Info("Publishing expense events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc := services.NewExpenseService(repo, publisher, services.Options{
		Resolver:     core.NewResolver(loc),
		StoreTimeout: cfg.StoreTimeout,
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
	})

	caches := cache.NewManager()
	for _, c := range svc.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(cacheSweepInterval)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	srv := apphttp.NewServer(":"+cfg.Port, svc, tokens, repo, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, cancel := cli.SignalContext(ctx, logger)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		logger.Info("Starting xpense server", "port", cfg.Port, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownErr := cli.Shutdown(logger, shutdownTimeout,
		srv.Shutdown,
		func(context.Context) error {
			caches.Stop()
			return nil
		},
		func(context.Context) error { return svc.Close() },
		func(context.Context) error { return repo.Close() },
	)
	return errors.Join(serveErr, shutdownErr)
}
