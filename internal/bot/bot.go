// Package bot is the Telegram event source of the monitor.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ChatMonitor/internal/models"
	"ChatMonitor/internal/subscription"
	"ChatMonitor/internal/watcher"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const pollTimeout = 60

// ErrUpdatesClosed is returned by Start when the update stream ends before shutdown
var ErrUpdatesClosed = errors.New("update channel closed")

// API is the part of *tgbotapi.BotAPI the listener uses
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// Processor handles one event
type Processor interface {
	Process(ctx context.Context, ev *models.MessageEvent) watcher.Outcome
}

// Bot receives updates and forwards subscribed messages to the processor
type Bot struct {
	api       API
	processor Processor
	subs      *subscription.Set
	logger    *zap.Logger
}

// NewBot creates a new Bot instance
func NewBot(api API, processor Processor, subs *subscription.Set, logger *zap.Logger) *Bot {
	return &Bot{
		api:       api,
		processor: processor,
		subs:      subs,
		logger:    logger.Named("bot"),
	}
}

// Start long-polls for updates until ctx is cancelled.
// Updates are handled one at a time in delivery order.
// It returns ErrUpdatesClosed if the stream stops while ctx is still live.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeout
	updateConfig.AllowedUpdates = []string{"message", "channel_post"}

	updates := b.api.GetUpdatesChan(updateConfig)
	b.logger.Info("Listening for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Stopped receiving updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrUpdatesClosed
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate passes the update to the processor if it carries a message
// from a subscribed chat. It reports whether the update was processed.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) bool {
	ev, ok := EventFromUpdate(update)
	if !ok {
		return false
	}
	if !b.subs.Contains(ev.CanonicalChatID()) {
		return false
	}

	outcome := b.processor.Process(ctx, &ev)
	b.logger.Debug("Update handled",
		zap.Int("update_id", update.UpdateID),
		zap.Int64("chat_id", ev.ChatID),
		zap.Stringer("outcome", outcome))
	return true
}

// ResolveChat checks the bot can see the chat and returns its display title
func (b *Bot) ResolveChat(ctx context.Context, chatID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}
	return chatTitle(&chat), nil
}

func chatTitle(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	name := strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	if name != "" {
		return name
	}
	return chat.UserName
}

// EventFromUpdate extracts a new message or channel post from update.
// Edits, callbacks and other update kinds are ignored.
func EventFromUpdate(update tgbotapi.Update) (models.MessageEvent, bool) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return models.MessageEvent{}, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	return models.MessageEvent{
		ChatID:    msg.Chat.ID,
		ChatType:  msg.Chat.Type,
		ChatTitle: chatTitle(msg.Chat),
		MessageID: int64(msg.MessageID),
		Text:      text,
		HasMedia:  hasMedia(msg),
		Received:  msg.Time(),
	}, true
}

func hasMedia(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 ||
		msg.Document != nil ||
		msg.Video != nil ||
		msg.Audio != nil ||
		msg.Voice != nil ||
		msg.Animation != nil ||
		msg.Sticker != nil ||
		msg.VideoNote != nil
}
