package main

import (
	"context"
	"fmt"
	"time"

	"ChatMonitor/internal/search"
	"ChatMonitor/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to MongoDB and Meilisearch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}
}

func runCheck(cmd *cobra.Command) error {
	cfg, log, err := setup(nil)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	log.Info("Attempting to connect to MongoDB", zap.String("database", cfg.Database.Name))
	store, err := storage.NewMongoStorage(ctx, cfg.Database.URI, cfg.Database.Name, cfg.Database.Timeout, log)
	if err != nil {
		return fmt.Errorf("mongodb: %w", err)
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("mongodb: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Successfully connected to MongoDB!")

	if !cfg.Search.Enabled() {
		fmt.Fprintln(cmd.OutOrStdout(), "Meilisearch is not configured, skipping")
		return nil
	}
	idx, err := search.NewNotificationIndex(cfg.Search.Host, cfg.Search.APIKey, cfg.Search.Index, log)
	if err != nil {
		return fmt.Errorf("meilisearch: %w", err)
	}
	if err := idx.Health(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Successfully connected to Meilisearch!")
	return nil
}
