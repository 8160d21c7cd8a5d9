package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"ChatMonitor/internal/models"
)

// MemoryStorage keeps everything in process memory
type MemoryStorage struct {
	mu            sync.RWMutex
	chats         map[int64]models.MonitoredChat
	order         []int64
	processed     map[string]models.ProcessedMessage
	notifications []models.Notification
	menus         map[int64][]int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		chats:     make(map[int64]models.MonitoredChat),
		processed: make(map[string]models.ProcessedMessage),
		menus:     make(map[int64][]int),
	}
}

// Chat registry

func (s *MemoryStorage) GetChat(ctx context.Context, chatID int64) (*models.MonitoredChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, exists := s.chats[chatID]
	if !exists {
		return nil, ErrChatNotFound
	}
	chat.Keywords = append([]string(nil), chat.Keywords...)
	return &chat, nil
}

func (s *MemoryStorage) ListChats(ctx context.Context) ([]models.MonitoredChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]models.MonitoredChat, 0, len(s.order))
	for _, id := range s.order {
		chat := s.chats[id]
		chat.Keywords = append([]string(nil), chat.Keywords...)
		chats = append(chats, chat)
	}
	return chats, nil
}

func (s *MemoryStorage) ListChatIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]int64(nil), s.order...), nil
}

func (s *MemoryStorage) AddChat(ctx context.Context, chat *models.MonitoredChat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chats[chat.ChatID]; exists {
		return ErrChatExists
	}
	stored := *chat
	stored.Keywords = append([]string{}, chat.Keywords...)
	s.chats[chat.ChatID] = stored
	s.order = append(s.order, chat.ChatID)
	return nil
}

func (s *MemoryStorage) SetKeywords(ctx context.Context, chatID int64, keywords []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, exists := s.chats[chatID]
	if !exists {
		return ErrChatNotFound
	}
	chat.Keywords = append([]string{}, keywords...)
	s.chats[chatID] = chat
	return nil
}

func (s *MemoryStorage) DeleteChat(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chats[chatID]; !exists {
		return ErrChatNotFound
	}
	delete(s.chats, chatID)
	for i, id := range s.order {
		if id == chatID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ledgers

func (s *MemoryStorage) MarkSeen(ctx context.Context, rec *models.ProcessedMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processed[rec.MessageID]; exists {
		return false, nil
	}
	s.processed[rec.MessageID] = *rec
	return true, nil
}

func (s *MemoryStorage) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, rec := range s.processed {
		if rec.ProcessedAt.Before(cutoff) {
			delete(s.processed, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStorage) RecordNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *MemoryStorage) PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	var deleted int64
	for _, n := range s.notifications {
		if n.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	return deleted, nil
}

// Admin menus

func (s *MemoryStorage) TrackMenuMessage(ctx context.Context, msg *models.MenuMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.menus[msg.ChatID] = append(s.menus[msg.ChatID], msg.MessageID)
	return nil
}

func (s *MemoryStorage) TakeMenuMessages(ctx context.Context, chatID int64) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.menus[chatID]
	delete(s.menus, chatID)
	return ids, nil
}

// ProcessedKeys returns the dedup keys currently stored, sorted
func (s *MemoryStorage) ProcessedKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.processed))
	for key := range s.processed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Notifications returns a copy of the notification history
func (s *MemoryStorage) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Notification(nil), s.notifications...)
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
