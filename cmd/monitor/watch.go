package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ChatMonitor/internal/bot"
	"ChatMonitor/internal/config"
	"ChatMonitor/internal/notify"
	"ChatMonitor/internal/retention"
	"ChatMonitor/internal/subscription"
	"ChatMonitor/internal/watcher"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch subscribed chats and send keyword notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context())
		},
	}
}

func runWatch(parent context.Context) error {
	cfg, log, err := setup((*config.Config).ValidateWatch)
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

	notifier, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("Failed to create notification bot", zap.Error(err))
		return err
	}
	sink := notify.NewTelegramSink(notifier, cfg.Telegram.NotificationChatID, log)

	listenerAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.WatcherToken)
	if err != nil {
		return reportCritical(sink, log, fmt.Errorf("failed to create watcher bot: %w", err))
	}
	listenerAPI.Debug = cfg.Telegram.Debug
	log.Info("Authorized", zap.String("watcher", listenerAPI.Self.UserName), zap.String("notifier", notifier.Self.UserName))

	var opts []watcher.Option
	targets := []retention.Target{
		{Name: "processed_messages", Purge: store.PurgeProcessedBefore},
		{Name: "notifications", Purge: store.PurgeNotificationsBefore},
	}
	if idx := openIndex(cfg, log); idx != nil {
		opts = append(opts, watcher.WithIndexer(idx))
		targets = append(targets, retention.Target{Name: "notification_index", Purge: idx.DeleteNotificationsBefore})
	}

	w := watcher.New(store, store, store, sink, log, opts...)
	subs := subscription.NewSet()
	listener := bot.NewBot(listenerAPI, w, subs, log)
	manager := subscription.NewManager(store, listener, subs, cfg.Watcher.SyncInterval, log)
	sweeper := retention.NewSweeper(cfg.Watcher.Retention, cfg.Watcher.SweepInterval, log, targets...)

	if err := sink.Notify(ctx, notify.StartupMessage); err != nil {
		log.Warn("Failed to send startup message", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Start(gctx) })
	g.Go(func() error { return manager.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })

	if err := g.Wait(); err != nil {
		return reportCritical(sink, log, err)
	}

	log.Info("Monitor stopped")
	return nil
}

// reportCritical logs err, sends it to the notification chat and returns it.
// The send uses a fresh context since the run context may already be done.
func reportCritical(sink notify.Sink, log *zap.Logger, err error) error {
	log.Error("Monitor stopped with error", zap.Error(err))
	if notifyErr := sink.Notify(context.Background(), notify.RenderCriticalError(err)); notifyErr != nil {
		log.Warn("Failed to report critical error", zap.Error(notifyErr))
	}
	return err
}
