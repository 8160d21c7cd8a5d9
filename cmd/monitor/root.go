package main

import (
	"context"
	"fmt"

	"ChatMonitor/internal/config"
	"ChatMonitor/internal/logger"
	"ChatMonitor/internal/search"
	"ChatMonitor/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "monitor",
		Short:        "Telegram keyword monitor",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (optional).")

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newCheckCmd())

	return cmd
}

// setup loads the configuration, checks it with validate and builds the logger
func setup(validate func(*config.Config) error) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	if cfg.Database.UseInMemory {
		log.Warn("Using in-memory storage, nothing survives a restart")
		return storage.NewMemoryStorage(), nil
	}
	return storage.NewMongoStorage(ctx, cfg.Database.URI, cfg.Database.Name, cfg.Database.Timeout, log)
}

// openIndex connects to the notification index. It returns nil when search is disabled or unreachable.
func openIndex(cfg *config.Config, log *zap.Logger) *search.NotificationIndex {
	if !cfg.Search.Enabled() {
		return nil
	}
	idx, err := search.NewNotificationIndex(cfg.Search.Host, cfg.Search.APIKey, cfg.Search.Index, log)
	if err != nil {
		log.Warn("Notification index unavailable, continuing without it", zap.Error(err))
		return nil
	}
	return idx
}
