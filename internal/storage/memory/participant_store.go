package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/storage"
)

// ParticipantStore is an in-memory implementation of storage.ParticipantStore.
type ParticipantStore struct {
	mu sync.RWMutex
	// ordered by TotalPurchased DESC; rebuilt wholesale on ReplaceAll
	records []domain.ParticipantRecord
	byAddr  map[common.Address]int
}

// NewParticipantStore creates a new in-memory participant store.
func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{byAddr: make(map[common.Address]int)}
}

// ReplaceAll swaps the stored set for the given records atomically.
func (s *ParticipantStore) ReplaceAll(_ context.Context, records []domain.ParticipantRecord) error {
	next := make([]domain.ParticipantRecord, len(records))
	copy(next, records)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].TotalPurchased > next[j].TotalPurchased
	})

	index := make(map[common.Address]int, len(next))
	for i, rec := range next {
		index[rec.Address] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = next
	s.byAddr = index
	return nil
}

// GetByAddress retrieves one participant. Returns ErrNotFound if the
// address never purchased.
func (s *ParticipantStore) GetByAddress(_ context.Context, addr common.Address) (*domain.ParticipantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, exists := s.byAddr[addr]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := s.records[i]
	return &recCopy, nil
}

// List retrieves a page of participants ordered by total purchased DESC.
func (s *ParticipantStore) List(_ context.Context, offset, limit int) ([]domain.ParticipantRecord, error) {
	if offset < 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.records) {
		return nil, nil
	}

	end := len(s.records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]domain.ParticipantRecord, end-offset)
	copy(out, s.records[offset:end])
	return out, nil
}

// Count returns the stored participant count.
func (s *ParticipantStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Verify interface compliance at compile time.
var _ storage.ParticipantStore = (*ParticipantStore)(nil)
