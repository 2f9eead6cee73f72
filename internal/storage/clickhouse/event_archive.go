package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/storage"
)

// EventArchive implements storage.EventArchive using ClickHouse.
// Amounts are stored as decimal strings; uint256 does not survive any
// native column type and the archive never does arithmetic.
type EventArchive struct {
	conn *Conn
}

// NewEventArchive creates a new EventArchive.
func NewEventArchive(conn *Conn) *EventArchive {
	return &EventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchive)(nil)

// InsertBulk adds a batch of events. The table is a ReplacingMergeTree
// keyed on (block_number, tx_hash, log_index), so re-inserts collapse
// during merges; reads still deduplicate explicitly.
func (s *EventArchive) InsertBulk(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO presale_events (
			kind, tx_hash, log_index, block_number,
			buyer, token_amount, payment_amount, staking_option,
			claimant, recipient, amount, whitelist_user, whitelisted
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i := range events {
		ev := &events[i]
		err = batch.Append(
			string(ev.Kind),
			ev.TxHash.Hex(),
			uint32(ev.LogIndex),
			ev.BlockNumber,
			hexAddr(ev.Buyer),
			bigString(ev.TokenAmount),
			bigString(ev.PaymentAmount),
			ev.StakingOption,
			hexAddr(ev.Claimant),
			hexAddr(ev.Recipient),
			bigString(ev.Amount),
			hexAddr(ev.User),
			boolU8(ev.Whitelisted),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByBlockRange retrieves events within [from, to] (inclusive),
// ordered by block number then log index ASC. FINAL forces merge-time
// dedup so unreplaced duplicate rows never reach the caller.
func (s *EventArchive) GetByBlockRange(ctx context.Context, from, to uint64) ([]domain.Event, error) {
	query := `
		SELECT kind, tx_hash, log_index, block_number,
		       buyer, token_amount, payment_amount, staking_option,
		       claimant, recipient, amount, whitelist_user, whitelisted
		FROM presale_events FINAL
		WHERE block_number >= ? AND block_number <= ?
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query by block range: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			ev                        domain.Event
			kind, txHash              string
			logIndex                  uint32
			buyer, claimant           string
			recipient, whitelistUser  string
			tokenAmount, paymentAmnt  string
			amount                    string
			whitelisted               uint8
		)

		err = rows.Scan(
			&kind, &txHash, &logIndex, &ev.BlockNumber,
			&buyer, &tokenAmount, &paymentAmnt, &ev.StakingOption,
			&claimant, &recipient, &amount, &whitelistUser, &whitelisted,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ev.Kind = domain.EventKind(kind)
		ev.TxHash = common.HexToHash(strings.TrimRight(txHash, "\x00"))
		ev.LogIndex = uint(logIndex)
		ev.Buyer = common.HexToAddress(buyer)
		ev.Claimant = common.HexToAddress(claimant)
		ev.Recipient = common.HexToAddress(recipient)
		ev.User = common.HexToAddress(whitelistUser)
		ev.Whitelisted = whitelisted != 0
		ev.TokenAmount = parseBig(tokenAmount)
		ev.PaymentAmount = parseBig(paymentAmnt)
		ev.Amount = parseBig(amount)

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

// CountByKind returns archived event counts per kind.
func (s *EventArchive) CountByKind(ctx context.Context) (map[domain.EventKind]uint64, error) {
	query := `
		SELECT kind, count() AS n
		FROM presale_events FINAL
		GROUP BY kind
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query counts by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventKind]uint64)
	for rows.Next() {
		var kind string
		var n uint64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[domain.EventKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}

	return counts, nil
}

func hexAddr(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimRight(s, "\x00"), 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

func boolU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
