package postgres

import (
	"context"
	"fmt"

	"presale-dashboard/internal/storage"
)

// CheckpointStore implements storage.CheckpointStore using PostgreSQL.
// The table holds a single row; SetCheckpoint upserts it.
type CheckpointStore struct {
	pool *Pool
}

// NewCheckpointStore creates a new CheckpointStore.
func NewCheckpointStore(pool *Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// GetCheckpoint returns the last saved position.
func (s *CheckpointStore) GetCheckpoint(ctx context.Context) (*storage.FetchCheckpoint, error) {
	var block int64
	err := s.pool.QueryRow(ctx, `SELECT block FROM fetch_checkpoint WHERE id = 1`).Scan(&block)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return &storage.FetchCheckpoint{Block: uint64(block)}, nil
}

// SetCheckpoint saves the last processed position.
func (s *CheckpointStore) SetCheckpoint(ctx context.Context, cp *storage.FetchCheckpoint) error {
	if cp == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO fetch_checkpoint (id, block)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET block = EXCLUDED.block
	`

	if _, err := s.pool.Exec(ctx, query, int64(cp.Block)); err != nil {
		return fmt.Errorf("set checkpoint: %w", err)
	}
	return nil
}
