package subscription

import (
	"sort"
	"sync"
)

// Set is the installed subscription: the chat ids the listener currently forwards
type Set struct {
	mu    sync.RWMutex
	chats map[int64]struct{}
}

func NewSet() *Set {
	return &Set{chats: make(map[int64]struct{})}
}

// Contains reports whether events from chatID should be handled
func (s *Set) Contains(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chats[chatID]
	return ok
}

// Clear removes every installed chat. Safe on an empty set.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make(map[int64]struct{})
}

// Replace installs exactly ids
func (s *Set) Replace(ids []int64) {
	chats := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		chats[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
}

// IDs returns the installed chat ids in ascending order
func (s *Set) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.chats))
	for id := range s.chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}
