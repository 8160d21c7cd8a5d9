package storage

import (
	"context"
	"errors"
	"time"

	"ChatMonitor/internal/models"
)

var (
	// ErrChatNotFound is returned when no monitored chat has the requested id
	ErrChatNotFound = errors.New("chat not found")
	// ErrChatExists is returned when registering a chat id twice
	ErrChatExists = errors.New("chat already registered")
)

// ChatRegistry stores the set of monitored chats
type ChatRegistry interface {
	GetChat(ctx context.Context, chatID int64) (*models.MonitoredChat, error)
	ListChats(ctx context.Context) ([]models.MonitoredChat, error)
	ListChatIDs(ctx context.Context) ([]int64, error)
	AddChat(ctx context.Context, chat *models.MonitoredChat) error
	SetKeywords(ctx context.Context, chatID int64, keywords []string) error
	DeleteChat(ctx context.Context, chatID int64) error
}

// DedupLedger records processed (chat, message) pairs.
// MarkSeen inserts the record unless its key exists and reports whether it was inserted.
type DedupLedger interface {
	MarkSeen(ctx context.Context, rec *models.ProcessedMessage) (bool, error)
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationLedger is the append-only history of emitted notifications
type NotificationLedger interface {
	RecordNotification(ctx context.Context, n *models.Notification) error
	PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MenuTracker remembers the admin bot messages shown in an operator chat.
// TakeMenuMessages returns the tracked ids and forgets them.
type MenuTracker interface {
	TrackMenuMessage(ctx context.Context, msg *models.MenuMessage) error
	TakeMenuMessages(ctx context.Context, chatID int64) ([]int, error)
}

// Storage bundles everything the monitor persists
type Storage interface {
	ChatRegistry
	DedupLedger
	NotificationLedger
	MenuTracker
	Close() error
}
