package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ChatMonitor/internal/models"
	"ChatMonitor/internal/subscription"
	"ChatMonitor/internal/watcher"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAPI struct {
	updates chan tgbotapi.Update
	config  tgbotapi.UpdateConfig
	stopped bool
	chats   map[int64]tgbotapi.Chat
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.config = config
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() { f.stopped = true }

func (f *fakeAPI) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	chat, ok := f.chats[config.ChatID]
	if !ok {
		return tgbotapi.Chat{}, errors.New("Bad Request: chat not found")
	}
	return chat, nil
}

type recordingProcessor struct {
	mu     sync.Mutex
	events []models.MessageEvent
}

func (p *recordingProcessor) Process(ctx context.Context, ev *models.MessageEvent) watcher.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return watcher.OutcomeNoMatch
}

func (p *recordingProcessor) Events() []models.MessageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.MessageEvent(nil), p.events...)
}

func textUpdate(chatID int64, chatType string, messageID int, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: messageID,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType, Title: "Chat"},
		Text:      text,
	}}
}

func TestEventFromUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		ok     bool
		want   models.MessageEvent
	}{
		{
			name:   "text message",
			update: textUpdate(100, "group", 5, "hello"),
			ok:     true,
			want:   models.MessageEvent{ChatID: 100, ChatType: "group", ChatTitle: "Chat", MessageID: 5, Text: "hello"},
		},
		{
			name: "photo with caption",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 6,
				Chat:      &tgbotapi.Chat{ID: 100, Type: "group", Title: "Chat"},
				Caption:   "look at this",
				Photo:     []tgbotapi.PhotoSize{{FileID: "p"}},
			}},
			ok:   true,
			want: models.MessageEvent{ChatID: 100, ChatType: "group", ChatTitle: "Chat", MessageID: 6, Text: "look at this", HasMedia: true},
		},
		{
			name: "channel post",
			update: tgbotapi.Update{ChannelPost: &tgbotapi.Message{
				MessageID: 7,
				Chat:      &tgbotapi.Chat{ID: -1000000000555, Type: "channel", Title: "News"},
				Text:      "breaking",
			}},
			ok:   true,
			want: models.MessageEvent{ChatID: -1000000000555, ChatType: "channel", ChatTitle: "News", MessageID: 7, Text: "breaking"},
		},
		{
			name: "sticker without text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 8,
				Chat:      &tgbotapi.Chat{ID: 1, Type: "private", FirstName: "Ann", LastName: "Lee"},
				Sticker:   &tgbotapi.Sticker{FileID: "s"},
			}},
			ok:   true,
			want: models.MessageEvent{ChatID: 1, ChatType: "private", ChatTitle: "Ann Lee", MessageID: 8, HasMedia: true},
		},
		{
			name:   "callback query",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "1"}},
		},
		{
			name:   "edited message",
			update: tgbotapi.Update{EditedMessage: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 1}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EventFromUpdate(tt.update)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			got.Received = time.Time{}
			tt.want.Received = time.Time{}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBot_HandleUpdate_FiltersBySubscription(t *testing.T) {
	subs := subscription.NewSet()
	subs.Replace([]int64{100, -1000000000555})
	proc := &recordingProcessor{}
	b := NewBot(&fakeAPI{}, proc, subs, zaptest.NewLogger(t))

	ctx := context.Background()
	assert.True(t, b.HandleUpdate(ctx, textUpdate(100, "group", 1, "a")))
	assert.False(t, b.HandleUpdate(ctx, textUpdate(200, "group", 1, "b")))
	assert.True(t, b.HandleUpdate(ctx, textUpdate(555, "channel", 2, "c")), "bare channel ids are normalized")
	assert.False(t, b.HandleUpdate(ctx, tgbotapi.Update{}))

	events := proc.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Text)
	assert.Equal(t, "c", events[1].Text)
}

func TestBot_Start(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 3)}
	subs := subscription.NewSet()
	subs.Replace([]int64{100})
	proc := &recordingProcessor{}
	b := NewBot(api, proc, subs, zaptest.NewLogger(t))

	api.updates <- textUpdate(100, "group", 1, "first")
	api.updates <- textUpdate(300, "group", 1, "ignored")
	api.updates <- textUpdate(100, "group", 2, "second")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	require.Eventually(t, func() bool { return len(proc.Events()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}

	events := proc.Events()
	assert.Equal(t, "first", events[0].Text)
	assert.Equal(t, "second", events[1].Text)
	assert.True(t, api.stopped)
	assert.Equal(t, pollTimeout, api.config.Timeout)
	assert.Equal(t, []string{"message", "channel_post"}, api.config.AllowedUpdates)
}

func TestBot_Start_UpdatesClosed(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 1)}
	subs := subscription.NewSet()
	subs.Replace([]int64{100})
	proc := &recordingProcessor{}
	b := NewBot(api, proc, subs, zaptest.NewLogger(t))

	api.updates <- textUpdate(100, "group", 1, "last")
	close(api.updates)

	done := make(chan error, 1)
	go func() { done <- b.Start(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrUpdatesClosed)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after the update channel closed")
	}
	require.Len(t, proc.Events(), 1)
	assert.False(t, api.stopped)
}

func TestBot_ResolveChat(t *testing.T) {
	api := &fakeAPI{chats: map[int64]tgbotapi.Chat{
		-1001: {ID: -1001, Type: "channel", Title: "News"},
		42:    {ID: 42, Type: "private", FirstName: "Ann"},
		43:    {ID: 43, Type: "private", UserName: "anon"},
	}}
	b := NewBot(api, &recordingProcessor{}, subscription.NewSet(), zaptest.NewLogger(t))
	ctx := context.Background()

	title, err := b.ResolveChat(ctx, -1001)
	require.NoError(t, err)
	assert.Equal(t, "News", title)

	title, err = b.ResolveChat(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Ann", title)

	title, err = b.ResolveChat(ctx, 43)
	require.NoError(t, err)
	assert.Equal(t, "anon", title)

	_, err = b.ResolveChat(ctx, 7)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.ResolveChat(cancelled, -1001)
	assert.ErrorIs(t, err, context.Canceled)
}
