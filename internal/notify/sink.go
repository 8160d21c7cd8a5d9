package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sink delivers a text to the operator. Delivery is best effort.
type Sink interface {
	Notify(ctx context.Context, text string) error
}

// Sender is the part of the Bot API client the sink needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink sends notifications to a fixed chat through the Bot API
type TelegramSink struct {
	api    Sender
	chatID int64
	logger *zap.Logger
}

// NewTelegramSink creates a sink posting into chatID
func NewTelegramSink(api Sender, chatID int64, logger *zap.Logger) *TelegramSink {
	return &TelegramSink{
		api:    api,
		chatID: chatID,
		logger: logger.Named("sink"),
	}
}

// Notify sends text once, formatted as HTML. Failures are logged and returned, never retried.
func (s *TelegramSink) Notify(ctx context.Context, text string) error {
	s.logger.Debug("Sending notification", zap.Int64("chat_id", s.chatID), zap.Int("length", len(text)))

	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := s.api.Send(msg); err != nil {
		s.logger.Error("Failed to send notification",
			zap.Error(err),
			zap.Int64("chat_id", s.chatID))
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
