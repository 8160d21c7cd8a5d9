// Package watcher turns inbound message events into keyword notifications.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChatMonitor/internal/matcher"
	"ChatMonitor/internal/models"
	"ChatMonitor/internal/notify"
	"ChatMonitor/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type dedupLedger interface {
	MarkSeen(ctx context.Context, rec *models.ProcessedMessage) (bool, error)
}

type chatRegistry interface {
	GetChat(ctx context.Context, chatID int64) (*models.MonitoredChat, error)
}

type notificationLedger interface {
	RecordNotification(ctx context.Context, n *models.Notification) error
}

// Indexer receives every recorded notification for history search
type Indexer interface {
	IndexNotification(ctx context.Context, n *models.Notification) error
}

// Watcher runs the per-event pipeline
type Watcher struct {
	dedup    dedupLedger
	registry chatRegistry
	ledger   notificationLedger
	sink     notify.Sink
	index    Indexer
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Watcher)

// WithIndexer pushes recorded notifications to a search index
func WithIndexer(idx Indexer) Option {
	return func(w *Watcher) { w.index = idx }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

func New(dedup dedupLedger, registry chatRegistry, ledger notificationLedger, sink notify.Sink, logger *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		dedup:    dedup,
		registry: registry,
		ledger:   ledger,
		sink:     sink,
		now:      time.Now,
		logger:   logger.Named("watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle runs dedup, lookup, match and notify for one event.
// The processed-message record is written before anything else.
func (w *Watcher) Handle(ctx context.Context, ev *models.MessageEvent) (Outcome, error) {
	rec := &models.ProcessedMessage{
		MessageID:         ev.DedupKey(),
		ChatID:            ev.ChatID,
		MessageIDOriginal: ev.MessageID,
		ProcessedAt:       w.now(),
		Text:              ev.Text,
	}
	first, err := w.dedup.MarkSeen(ctx, rec)
	if err != nil {
		return OutcomeFailed, &StageError{Stage: StageDedup, Err: err}
	}
	if !first {
		return OutcomeDuplicate, nil
	}

	chatID := ev.CanonicalChatID()
	chat, err := w.registry.GetChat(ctx, chatID)
	if errors.Is(err, storage.ErrChatNotFound) {
		return OutcomeUnmonitored, nil
	}
	if err != nil {
		return OutcomeFailed, &StageError{Stage: StageLookup, Err: err}
	}
	if !chat.HasKeywords() {
		return OutcomeUnmonitored, nil
	}

	if !matcher.Matches(ev.Text, chat.Keywords) {
		return OutcomeNoMatch, nil
	}

	return OutcomeNotified, w.notify(ctx, chatID, chat, ev)
}

func (w *Watcher) notify(ctx context.Context, chatID int64, chat *models.MonitoredChat, ev *models.MessageEvent) error {
	body := notify.RenderAlert(chat, ev.ChatTitle, ev.Text, ev.HasMedia, matcher.Matched(ev.Text, chat.Keywords))

	delivered := true
	if err := w.sink.Notify(ctx, body); err != nil {
		delivered = false
		w.logger.Warn("Notification not delivered",
			zap.Int64("chat_id", chatID),
			zap.Int64("message_id", ev.MessageID),
			zap.Error(err))
	}

	n := &models.Notification{
		NotificationID:   uuid.NewString(),
		ChatID:           chatID,
		MessageID:        ev.MessageID,
		Text:             ev.Text,
		Keywords:         chat.Keywords,
		NotificationText: body,
		Delivered:        delivered,
		CreatedAt:        w.now(),
	}
	if err := w.ledger.RecordNotification(ctx, n); err != nil {
		return &StageError{Stage: StageRecord, Err: err}
	}

	if w.index != nil {
		if err := w.index.IndexNotification(ctx, n); err != nil {
			w.logger.Warn("Failed to index notification",
				zap.String("notification_id", n.NotificationID),
				zap.Error(err))
		}
	}
	return nil
}

// Process is the per-event boundary: failures and panics are logged and
// reported to the operator, never propagated.
func (w *Watcher) Process(ctx context.Context, ev *models.MessageEvent) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			w.fail(ctx, ev, &StageError{Stage: StageHandler, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	outcome, err := w.Handle(ctx, ev)
	if err != nil {
		w.fail(ctx, ev, err)
		return outcome
	}

	w.logger.Debug("Message processed",
		zap.Int64("chat_id", ev.ChatID),
		zap.Int64("message_id", ev.MessageID),
		zap.Stringer("outcome", outcome))
	return outcome
}

func (w *Watcher) fail(ctx context.Context, ev *models.MessageEvent, err error) {
	w.logger.Error("Failed to process message",
		zap.Int64("chat_id", ev.ChatID),
		zap.Int64("message_id", ev.MessageID),
		zap.Error(err))

	if sinkErr := w.sink.Notify(ctx, notify.RenderProcessingError(err)); sinkErr != nil {
		w.logger.Warn("Failed to report processing error", zap.Error(sinkErr))
	}
}
