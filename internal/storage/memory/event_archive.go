package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/storage"
)

// EventArchive is an in-memory implementation of storage.EventArchive.
// Duplicates are collapsed at insert time so reads never see them.
type EventArchive struct {
	mu   sync.RWMutex
	data map[domain.EventKey]*domain.Event
}

// NewEventArchive creates a new in-memory event archive.
func NewEventArchive() *EventArchive {
	return &EventArchive{data: make(map[domain.EventKey]*domain.Event)}
}

// InsertBulk adds a batch of events. Already archived events are kept
// as first written.
func (s *EventArchive) InsertBulk(_ context.Context, events []domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range events {
		key := events[i].Key()
		if _, exists := s.data[key]; exists {
			continue
		}
		evCopy := copyEvent(events[i])
		s.data[key] = &evCopy
	}
	return nil
}

// GetByBlockRange retrieves events within [from, to] (inclusive).
func (s *EventArchive) GetByBlockRange(_ context.Context, from, to uint64) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Event
	for _, ev := range s.data {
		if ev.BlockNumber >= from && ev.BlockNumber <= to {
			result = append(result, copyEvent(*ev))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].LogIndex < result[j].LogIndex
	})

	return result, nil
}

// CountByKind returns archived event counts per kind.
func (s *EventArchive) CountByKind(_ context.Context) (map[domain.EventKind]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.EventKind]uint64)
	for _, ev := range s.data {
		counts[ev.Kind]++
	}
	return counts, nil
}

// copyEvent deep-copies an event so stored big.Int values cannot be
// mutated through a returned slice.
func copyEvent(ev domain.Event) domain.Event {
	out := ev
	out.TokenAmount = copyBig(ev.TokenAmount)
	out.PaymentAmount = copyBig(ev.PaymentAmount)
	out.Amount = copyBig(ev.Amount)
	return out
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// Verify interface compliance at compile time.
var _ storage.EventArchive = (*EventArchive)(nil)
