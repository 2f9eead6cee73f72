package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// The derived stats blob is stored as JSONB; taken_at is the key.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if a snapshot
// with the same capture time exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.TakenAt.IsZero() {
		return storage.ErrInvalidInput
	}

	stats, err := json.Marshal(snap.Stats)
	if err != nil {
		return fmt.Errorf("encode snapshot stats: %w", err)
	}

	query := `
		INSERT INTO snapshots (taken_at, latest_block, failed_windows, stats)
		VALUES ($1, $2, $3, $4::jsonb)
	`

	_, err = s.pool.Exec(ctx, query,
		snap.TakenAt,
		snap.Stats.LatestBlock,
		snap.Stats.FailedWindows,
		string(stats),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest retrieves the most recent snapshot. Returns ErrNotFound if
// none has been stored yet.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query := `
		SELECT taken_at, stats
		FROM snapshots
		ORDER BY taken_at DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// GetByTimeRange retrieves snapshots captured within [start, end]
// (inclusive, unix seconds), ordered by capture time ASC.
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Snapshot, error) {
	query := `
		SELECT taken_at, stats
		FROM snapshots
		WHERE taken_at >= $1 AND taken_at <= $2
		ORDER BY taken_at ASC
	`

	rows, err := s.pool.Query(ctx, query, time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("get snapshots by time range: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}

// scanSnapshot scans a single row into a Snapshot.
func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	var stats []byte

	if err := row.Scan(&snap.TakenAt, &stats); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stats, &snap.Stats); err != nil {
		return nil, fmt.Errorf("decode snapshot stats: %w", err)
	}
	return &snap, nil
}
