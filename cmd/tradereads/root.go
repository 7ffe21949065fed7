package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tradereads/tradereads-api/internal/config"
	"github.com/tradereads/tradereads-api/internal/platform/logger"
)

// loadConfigFunc is replaced in tests.
var loadConfigFunc = config.Load

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tradereads",
		Short:         "TradeReads book exchange API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newSessionsCommand())
	return root
}

// setup loads the configuration and installs the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfigFunc()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Debug("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"jwt_secret_present", cfg.Auth.JWTSecret != "")
	return cfg, log, nil
}
