package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. Entries are copied on
// both paths so callers can never alias stored bytes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, ErrMiss
	}
	return copyEntry(entry), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = copyEntry(entry)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return ErrMiss
	}
	delete(s.entries, key)
	return nil
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func copyEntry(entry Entry) Entry {
	out := Entry{Expiry: entry.Expiry}
	if entry.Data != nil {
		out.Data = make([]byte, len(entry.Data))
		copy(out.Data, entry.Data)
	}
	return out
}
