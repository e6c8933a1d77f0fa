package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xpense/internal/cli"
	"xpense/internal/config"
	applog "xpense/internal/log"
)

var version = "dev"

// rootOptions are the persistent flags every subcommand reads.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "xpense",
		Short: "Personal expense tracking API",
		Long: `xpense records expenses per user and answers listing and
per-category summary queries over day, week, month or custom date windows.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml); environment variables take precedence")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (text, json); overrides LOG_FORMAT")

	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(migrateCmd(opts))
	cmd.AddCommand(tokenCmd(opts))
	cmd.AddCommand(oauthInitCmd(opts))
	cmd.AddCommand(versionCmd())

	return cmd
}

// load reads the configuration and installs the process logger.
func (o *rootOptions) load() (*config.Config, *applog.Logger, error) {
	cfg, err := cli.LoadConfig(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.SetupLogger(cfg, applog.ComponentApp, o.logLevel, o.logFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
