package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wizzychat/internal/app"
	"github.com/vovakirdan/wizzychat/internal/config"
	"github.com/vovakirdan/wizzychat/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
	backend    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "wizzychat",
		Short:         "Multi-user chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "default storage backend")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newUserCommand(opts))
	return root
}

// loadConfig resolves configuration and applies flag overrides.
func loadConfig(opts *rootOptions, overrides config.Config) (*config.Config, *zerolog.Logger, error) {
	bootstrap := log.New(opts.logLevel, "console")

	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	overrides.Log.Level = opts.logLevel
	overrides.Storage.Default = opts.backend
	cfg.UpdateFrom(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger := log.New(cfg.Log.Level, cfg.Log.Format)
	logger.Debug().Str("path", path).Msg("config loaded")
	return &cfg, logger, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts, overrides)
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Server.Addr).Str("default_backend", cfg.Storage.Default).Msg("starting wizzychat server")
			if err := application.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.Server.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().DurationVar(&overrides.Server.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	cmd.Flags().DurationVar(&overrides.Server.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}
