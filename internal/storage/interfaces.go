package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
)

// SnapshotStore provides access to aggregate snapshot storage.
// Snapshots are append-only; one row per completed refresh cycle.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if a snapshot
	// with the same capture time exists.
	Insert(ctx context.Context, s *domain.Snapshot) error

	// Latest retrieves the most recent snapshot. Returns ErrNotFound
	// if none has been stored yet.
	Latest(ctx context.Context) (*domain.Snapshot, error)

	// GetByTimeRange retrieves snapshots captured within [start, end]
	// (inclusive, unix seconds), ordered by capture time ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Snapshot, error)
}

// ParticipantStore provides access to the derived participant table.
// The table is rebuilt wholesale on every refresh cycle.
type ParticipantStore interface {
	// ReplaceAll swaps the stored set for the given records atomically.
	ReplaceAll(ctx context.Context, records []domain.ParticipantRecord) error

	// GetByAddress retrieves one participant. Returns ErrNotFound if
	// the address never purchased.
	GetByAddress(ctx context.Context, addr common.Address) (*domain.ParticipantRecord, error)

	// List retrieves a page of participants ordered by total purchased
	// DESC. offset/limit follow SQL semantics; limit <= 0 means all.
	List(ctx context.Context, offset, limit int) ([]domain.ParticipantRecord, error)

	// Count returns the stored participant count.
	Count(ctx context.Context) (int, error)
}

// EventArchive provides access to the decoded event log archive.
// The archive is the long-term record behind historical charts and
// lets a restart skip refetching already-seen block ranges.
type EventArchive interface {
	// InsertBulk adds a batch of events. Re-inserting an already
	// archived event is harmless; the archive deduplicates on read.
	InsertBulk(ctx context.Context, events []domain.Event) error

	// GetByBlockRange retrieves events within [from, to] (inclusive),
	// ordered by block number then log index ASC.
	GetByBlockRange(ctx context.Context, from, to uint64) ([]domain.Event, error)

	// CountByKind returns archived event counts per kind.
	CountByKind(ctx context.Context) (map[domain.EventKind]uint64, error)
}
