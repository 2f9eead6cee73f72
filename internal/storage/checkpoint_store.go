package storage

import "context"

// FetchCheckpoint represents the last fully processed chain position.
type FetchCheckpoint struct {
	Block uint64 // last block whose logs were fetched and archived
}

// CheckpointStore provides persistence for fetch progress. This lets a
// restart resume log fetching without re-reading the whole history.
type CheckpointStore interface {
	// GetCheckpoint returns the last saved position.
	// Returns ErrNotFound if no progress has been saved yet.
	GetCheckpoint(ctx context.Context) (*FetchCheckpoint, error)

	// SetCheckpoint saves the last processed position.
	SetCheckpoint(ctx context.Context, cp *FetchCheckpoint) error
}
