// Package subscription keeps the listener's chat set in line with the registry.
package subscription

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often the installed set is rebuilt
const DefaultInterval = 60 * time.Second

type chatLister interface {
	ListChatIDs(ctx context.Context) ([]int64, error)
}

// Resolver checks that the listener can still reach a chat and returns its title
type Resolver interface {
	ResolveChat(ctx context.Context, chatID int64) (string, error)
}

// Manager periodically rebuilds the subscription set from the registry
type Manager struct {
	registry chatLister
	resolver Resolver
	set      *Set
	interval time.Duration
	logger   *zap.Logger
}

func NewManager(registry chatLister, resolver Resolver, set *Set, interval time.Duration, logger *zap.Logger) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{
		registry: registry,
		resolver: resolver,
		set:      set,
		interval: interval,
		logger:   logger.Named("subscription"),
	}
}

// Sync runs one reconciliation cycle. If the registry can't be read the
// current set is left untouched.
func (m *Manager) Sync(ctx context.Context) error {
	ids, err := m.registry.ListChatIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list monitored chats: %w", err)
	}

	m.set.Clear()

	resolved := make([]int64, 0, len(ids))
	for _, id := range ids {
		title, err := m.resolver.ResolveChat(ctx, id)
		if err != nil {
			m.logger.Error("Chat is not accessible, skipping this cycle",
				zap.Int64("chat_id", id),
				zap.Error(err))
			continue
		}
		m.logger.Info("Chat access confirmed", zap.Int64("chat_id", id), zap.String("title", title))
		resolved = append(resolved, id)
	}

	m.set.Replace(resolved)
	m.logger.Debug("Subscription set rebuilt",
		zap.Int("registered", len(ids)),
		zap.Int("installed", len(resolved)))
	return nil
}

// Run syncs immediately and then on every tick until ctx is cancelled
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("Subscription manager started", zap.Duration("interval", m.interval))

	m.syncAndLog(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.syncAndLog(ctx)
		case <-ctx.Done():
			m.logger.Info("Subscription manager stopped")
			return nil
		}
	}
}

func (m *Manager) syncAndLog(ctx context.Context) {
	if err := m.Sync(ctx); err != nil {
		m.logger.Error("Failed to update chat list", zap.Error(err))
	}
}
