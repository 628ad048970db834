package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jerseyhouse/storefront/internal/app"
	"github.com/jerseyhouse/storefront/internal/config"
	"github.com/jerseyhouse/storefront/internal/logger"
)

// commandContext loads configuration once for commands that touch storage.
type commandContext struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	c.cfg = &cfg
	c.logger = logger.New(cfg.Env)
	return cfg, nil
}

// openApp builds the application against the configured backend.
func (c *commandContext) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, c.logger)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "jerseyctl",
		Short:         "Jersey House storefront operations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newSeedCommand(ctx))
	rootCmd.AddCommand(newCreateAdminCommand(ctx))
	rootCmd.AddCommand(newSizeCommand())
	rootCmd.AddCommand(newSizeChartCommand())

	return rootCmd
}
