package admin

import (
	"context"
	"time"

	"ChatMonitor/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type state int

const (
	stateIdle state = iota
	stateWaitingForward
	stateWaitingKeywords
)

// session is the conversation state of one operator chat
type session struct {
	state  state
	chatID int64 // chat whose keywords are being edited
}

func (h *Handler) session(chatID int64) *session {
	s, ok := h.sessions[chatID]
	if !ok {
		s = &session{}
		h.sessions[chatID] = s
	}
	return s
}

// resetSession drops the conversation state
func (h *Handler) resetSession(chatID int64) {
	s := h.session(chatID)
	s.state = stateIdle
	s.chatID = 0
}

// send deletes the previous bot messages in chatID and sends a new one.
// Sent ids are kept in storage so old menus are removed after a restart too.
func (h *Handler) send(ctx context.Context, chatID int64, text string, markup interface{}) error {
	previous, err := h.store.TakeMenuMessages(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to load previous messages", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	for _, id := range previous {
		if _, err := h.api.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
			h.logger.Warn("Failed to delete previous message",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", id),
				zap.Error(err))
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := h.api.Send(msg)
	if err != nil {
		return err
	}

	if err := h.store.TrackMenuMessage(ctx, &models.MenuMessage{
		ChatID:    chatID,
		MessageID: sent.MessageID,
		SentAt:    time.Now(),
	}); err != nil {
		h.logger.Error("Failed to save message id", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return nil
}
