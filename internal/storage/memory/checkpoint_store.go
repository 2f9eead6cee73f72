package memory

import (
	"context"
	"sync"

	"presale-dashboard/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
type CheckpointStore struct {
	mu sync.RWMutex
	cp *storage.FetchCheckpoint
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{}
}

// GetCheckpoint returns the last saved position.
func (s *CheckpointStore) GetCheckpoint(_ context.Context) (*storage.FetchCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cp == nil {
		return nil, storage.ErrNotFound
	}
	cpCopy := *s.cp
	return &cpCopy, nil
}

// SetCheckpoint saves the last processed position.
func (s *CheckpointStore) SetCheckpoint(_ context.Context, cp *storage.FetchCheckpoint) error {
	if cp == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cpCopy := *cp
	s.cp = &cpCopy
	return nil
}

// Verify interface compliance at compile time.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)
