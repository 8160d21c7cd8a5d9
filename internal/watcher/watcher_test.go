package watcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ChatMonitor/internal/models"
	"ChatMonitor/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSink struct {
	texts []string
	err   error
}

func (f *fakeSink) Notify(ctx context.Context, text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

type fakeIndex struct {
	indexed []string
	err     error
}

func (f *fakeIndex) IndexNotification(ctx context.Context, n *models.Notification) error {
	f.indexed = append(f.indexed, n.NotificationID)
	return f.err
}

type failingDedup struct{}

func (failingDedup) MarkSeen(ctx context.Context, rec *models.ProcessedMessage) (bool, error) {
	return false, errors.New("server selection timeout")
}

type panickingRegistry struct{}

func (panickingRegistry) GetChat(ctx context.Context, chatID int64) (*models.MonitoredChat, error) {
	panic("boom")
}

type failingLedger struct{}

func (failingLedger) RecordNotification(ctx context.Context, n *models.Notification) error {
	return errors.New("write concern error")
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestWatcher(t *testing.T, store *storage.MemoryStorage, sink *fakeSink, opts ...Option) *Watcher {
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return New(store, store, store, sink, zaptest.NewLogger(t), opts...)
}

func addChat(t *testing.T, store *storage.MemoryStorage, chatID int64, keywords ...string) {
	t.Helper()
	require.NoError(t, store.AddChat(context.Background(), &models.MonitoredChat{
		ChatID:   chatID,
		Type:     models.ChatTypeChat,
		Title:    "test chat",
		Keywords: keywords,
	}))
}

func TestWatcher_EndToEnd_ReplayIsSuppressed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	sink := &fakeSink{}
	w := newTestWatcher(t, store, sink)
	addChat(t, store, 100, "urgent")

	ev := &models.MessageEvent{ChatID: 100, ChatType: "group", MessageID: 1, Text: "this is urgent"}

	assert.Equal(t, OutcomeNotified, w.Process(ctx, ev))
	require.Len(t, sink.texts, 1)
	assert.Contains(t, sink.texts[0], "urgent")

	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	n := notifications[0]
	assert.Equal(t, int64(100), n.ChatID)
	assert.Equal(t, int64(1), n.MessageID)
	assert.Equal(t, "this is urgent", n.Text)
	assert.Equal(t, []string{"urgent"}, n.Keywords)
	assert.Equal(t, sink.texts[0], n.NotificationText)
	assert.True(t, n.Delivered)
	assert.Equal(t, fixedNow, n.CreatedAt)
	assert.NotEmpty(t, n.NotificationID)

	assert.Equal(t, OutcomeDuplicate, w.Process(ctx, ev))
	assert.Len(t, sink.texts, 1)
	assert.Len(t, store.Notifications(), 1)
}

func TestWatcher_NoMatchStillRecordsProcessed(t *testing.T) {
	store := storage.NewMemoryStorage()
	sink := &fakeSink{}
	w := newTestWatcher(t, store, sink)
	addChat(t, store, 100, "urgent")

	outcome := w.Process(context.Background(), &models.MessageEvent{ChatID: 100, MessageID: 2, Text: "nothing to see"})

	assert.Equal(t, OutcomeNoMatch, outcome)
	assert.Equal(t, []string{"100_2"}, store.ProcessedKeys())
	assert.Empty(t, store.Notifications())
	assert.Empty(t, sink.texts)
}

func TestWatcher_SinkFailureStillRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	sink := &fakeSink{err: errors.New("Too Many Requests")}
	w := newTestWatcher(t, store, sink)
	addChat(t, store, 100, "urgent")

	outcome := w.Process(context.Background(), &models.MessageEvent{ChatID: 100, MessageID: 3, Text: "URGENT!"})

	assert.Equal(t, OutcomeNotified, outcome)
	assert.Len(t, sink.texts, 1, "exactly one delivery attempt")
	require.Len(t, store.Notifications(), 1)
	assert.False(t, store.Notifications()[0].Delivered)
}

func TestWatcher_UnmonitoredChats(t *testing.T) {
	store := storage.NewMemoryStorage()
	sink := &fakeSink{}
	w := newTestWatcher(t, store, sink)
	addChat(t, store, 200)

	ctx := context.Background()
	assert.Equal(t, OutcomeUnmonitored, w.Process(ctx, &models.MessageEvent{ChatID: 999, MessageID: 1, Text: "urgent"}))
	assert.Equal(t, OutcomeUnmonitored, w.Process(ctx, &models.MessageEvent{ChatID: 200, MessageID: 1, Text: "urgent"}))

	assert.Empty(t, sink.texts)
	assert.Equal(t, []string{"200_1", "999_1"}, store.ProcessedKeys())
}

func TestWatcher_ChannelIDNormalization(t *testing.T) {
	store := storage.NewMemoryStorage()
	sink := &fakeSink{}
	w := newTestWatcher(t, store, sink)
	addChat(t, store, -1000000000555, "sale")

	ctx := context.Background()
	raw := &models.MessageEvent{ChatID: 555, ChatType: "channel", MessageID: 10, Text: "big sale"}
	prefixed := &models.MessageEvent{ChatID: -1000000000555, ChatType: "channel", MessageID: 11, Text: "another sale"}

	assert.Equal(t, OutcomeNotified, w.Process(ctx, raw))
	assert.Equal(t, OutcomeNotified, w.Process(ctx, prefixed))

	notifications := store.Notifications()
	require.Len(t, notifications, 2)
	assert.Equal(t, int64(-1000000000555), notifications[0].ChatID)
	assert.Equal(t, int64(-1000000000555), notifications[1].ChatID)
}

func TestWatcher_MediaMarker(t *testing.T) {
	store := storage.NewMemoryStorage()
	sink := &fakeSink{}
	w := newTestWatcher(t, store, sink)
	addChat(t, store, 100, "photo")

	w.Process(context.Background(), &models.MessageEvent{ChatID: 100, ChatTitle: "Photos", MessageID: 1, Text: "photo of the day", HasMedia: true})

	require.Len(t, sink.texts, 1)
	assert.Contains(t, sink.texts[0], "Photos")
	assert.Contains(t, sink.texts[0], "contains media")
}

func TestWatcher_Indexer(t *testing.T) {
	store := storage.NewMemoryStorage()
	idx := &fakeIndex{err: errors.New("meilisearch unavailable")}
	w := newTestWatcher(t, store, &fakeSink{}, WithIndexer(idx))
	addChat(t, store, 100, "urgent")

	outcome := w.Process(context.Background(), &models.MessageEvent{ChatID: 100, MessageID: 1, Text: "urgent"})

	assert.Equal(t, OutcomeNotified, outcome, "index failures are not fatal")
	require.Len(t, idx.indexed, 1)
	assert.Equal(t, store.Notifications()[0].NotificationID, idx.indexed[0])
}

func TestWatcher_DedupFailureIsReported(t *testing.T) {
	store := storage.NewMemoryStorage()
	sink := &fakeSink{}
	w := New(failingDedup{}, store, store, sink, zaptest.NewLogger(t))

	ev := &models.MessageEvent{ChatID: 100, MessageID: 1, Text: "urgent"}
	outcome, err := w.Handle(context.Background(), ev)
	assert.Equal(t, OutcomeFailed, outcome)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDedup, stageErr.Stage)

	assert.Equal(t, OutcomeFailed, w.Process(context.Background(), ev))
	require.Len(t, sink.texts, 1)
	assert.True(t, strings.HasPrefix(sink.texts[0], "❌"))
}

func TestWatcher_PanicIsRecovered(t *testing.T) {
	store := storage.NewMemoryStorage()
	sink := &fakeSink{}
	w := New(store, panickingRegistry{}, store, sink, zaptest.NewLogger(t))

	outcome := w.Process(context.Background(), &models.MessageEvent{ChatID: 1, MessageID: 1, Text: "x"})

	assert.Equal(t, OutcomeFailed, outcome)
	require.Len(t, sink.texts, 1)
	assert.Contains(t, sink.texts[0], "panic: boom")
}

func TestWatcher_RecordFailure(t *testing.T) {
	store := storage.NewMemoryStorage()
	sink := &fakeSink{}
	w := New(store, store, failingLedger{}, sink, zaptest.NewLogger(t))
	addChat(t, store, 100, "urgent")

	outcome, err := w.Handle(context.Background(), &models.MessageEvent{ChatID: 100, MessageID: 1, Text: "urgent"})

	assert.Equal(t, OutcomeNotified, outcome)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageRecord, stageErr.Stage)
	assert.Len(t, sink.texts, 1)
}
