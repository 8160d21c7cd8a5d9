package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ChatMonitor/internal/admin"
	"ChatMonitor/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Run the bot used to manage monitored chats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdmin(cmd.Context())
		},
	}
}

func runAdmin(parent context.Context) error {
	cfg, log, err := setup((*config.Config).ValidateAdmin)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open storage", zap.Error(err))
		return err
	}
	defer store.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("Failed to create admin bot", zap.Error(err))
		return err
	}
	api.Debug = cfg.Telegram.Debug
	log.Info("Authorized", zap.String("account", api.Self.UserName))

	var opts []admin.Option
	if idx := openIndex(cfg, log); idx != nil {
		opts = append(opts, admin.WithSearcher(idx))
	}

	return admin.New(api, store, cfg.Telegram.AllowedIDs, log, opts...).Run(ctx, api)
}
