package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/storage"
)

// ParticipantStore implements storage.ParticipantStore using PostgreSQL.
type ParticipantStore struct {
	pool *Pool
}

// NewParticipantStore creates a new ParticipantStore.
func NewParticipantStore(pool *Pool) *ParticipantStore {
	return &ParticipantStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ParticipantStore = (*ParticipantStore)(nil)

const participantColumns = `
	address, total_purchased, total_paid, total_claimed,
	estimated_rewards, tier_summary, whitelisted, participations, last_purchase_time
`

// ReplaceAll swaps the stored set for the given records atomically.
// Delete and reinsert run in one transaction so readers never see a
// half-replaced table.
func (s *ParticipantStore) ReplaceAll(ctx context.Context, records []domain.ParticipantRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace participants: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM participants`); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}

	if len(records) > 0 {
		rows := make([][]interface{}, len(records))
		for i, rec := range records {
			rows[i] = []interface{}{
				strings.ToLower(rec.Address.Hex()),
				rec.TotalPurchased,
				rec.TotalPaid,
				rec.TotalClaimed,
				rec.EstimatedRewards,
				rec.TierSummary,
				rec.Whitelisted,
				rec.Participations,
				rec.LastPurchaseTime,
			}
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"participants"},
			[]string{
				"address", "total_purchased", "total_paid", "total_claimed",
				"estimated_rewards", "tier_summary", "whitelisted", "participations", "last_purchase_time",
			},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy participants: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace participants: %w", err)
	}
	return nil
}

// GetByAddress retrieves one participant. Returns ErrNotFound if the
// address never purchased.
func (s *ParticipantStore) GetByAddress(ctx context.Context, addr common.Address) (*domain.ParticipantRecord, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM participants
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, strings.ToLower(addr.Hex()))
	rec, err := scanParticipant(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get participant by address: %w", err)
	}
	return rec, nil
}

// List retrieves a page of participants ordered by total purchased DESC.
func (s *ParticipantStore) List(ctx context.Context, offset, limit int) ([]domain.ParticipantRecord, error) {
	if offset < 0 {
		return nil, storage.ErrInvalidInput
	}
	if limit <= 0 {
		// SQL has no "no limit" literal that also binds; use ALL via NULL.
		limit = -1
	}

	query := `
		SELECT ` + participantColumns + `
		FROM participants
		ORDER BY total_purchased DESC, address ASC
		OFFSET $1
		LIMIT NULLIF($2, -1)
	`

	rows, err := s.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var records []domain.ParticipantRecord
	for rows.Next() {
		rec, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participant rows: %w", err)
	}

	return records, nil
}

// Count returns the stored participant count.
func (s *ParticipantStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM participants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// scanParticipant scans a single row into a ParticipantRecord.
func scanParticipant(row pgx.Row) (*domain.ParticipantRecord, error) {
	var rec domain.ParticipantRecord
	var addr string

	err := row.Scan(
		&addr,
		&rec.TotalPurchased,
		&rec.TotalPaid,
		&rec.TotalClaimed,
		&rec.EstimatedRewards,
		&rec.TierSummary,
		&rec.Whitelisted,
		&rec.Participations,
		&rec.LastPurchaseTime,
	)
	if err != nil {
		return nil, err
	}

	rec.Address = common.HexToAddress(addr)
	return &rec, nil
}
