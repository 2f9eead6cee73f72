// Package participants builds the derived per-address view of presale
// participation from contract reads and the deduplicated event stream.
package participants

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"presale-dashboard/internal/dedup"
	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/presale"
	"presale-dashboard/internal/stats"
)

// DefaultBatchSize bounds the number of addresses read concurrently.
// Public RPC endpoints throttle aggressively above this.
const DefaultBatchSize = 10

// ContractReader is the slice of the presale binding the builder needs.
type ContractReader interface {
	ParticipantSummary(ctx context.Context, user common.Address) (*presale.ParticipantSummary, error)
	ParticipationEntry(ctx context.Context, user common.Address, index int) (*presale.ParticipationEntry, error)
	EstimatedRewards(ctx context.Context, user common.Address) (*big.Int, error)
	IsWhitelisted(ctx context.Context, user common.Address) (bool, error)
}

var _ ContractReader = (*presale.Binding)(nil)

type Builder struct {
	reader    ContractReader
	tiers     []domain.StakingTier
	batchSize int
	logger    *zap.Logger
}

type Options struct {
	Reader    ContractReader
	Tiers     []domain.StakingTier
	BatchSize int
	Logger    *zap.Logger
}

func New(opts Options) *Builder {
	tiers := opts.Tiers
	if len(tiers) == 0 {
		tiers = domain.DefaultTiers
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{reader: opts.Reader, tiers: tiers, batchSize: batch, logger: logger}
}

// Addresses extracts the distinct buyer set from the purchase stream,
// in first-seen order.
func Addresses(events []domain.Event) []common.Address {
	seen := make(map[common.Address]struct{})
	var out []common.Address
	for _, ev := range events {
		if ev.Kind != domain.KindPurchase {
			continue
		}
		if _, ok := seen[ev.Buyer]; ok {
			continue
		}
		seen[ev.Buyer] = struct{}{}
		out = append(out, ev.Buyer)
	}
	return out
}

// Build reads per-address detail for every buyer in the event stream,
// a fixed-size batch at a time. A failed address is skipped with a
// warning; the remaining records are still returned. Records come back
// sorted by total purchased, descending.
func (b *Builder) Build(ctx context.Context, events []domain.Event, saleDecimals, payDecimals uint8) ([]domain.ParticipantRecord, error) {
	addresses := Addresses(events)
	if len(addresses) == 0 {
		return nil, nil
	}

	claimedByAddr := dedup.SumClaimEvents(events)

	records := make([]*domain.ParticipantRecord, len(addresses))
	for start := 0; start < len(addresses); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + b.batchSize
		if end > len(addresses) {
			end = len(addresses)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec, err := b.buildOne(ctx, addresses[i], claimedByAddr[addresses[i]], saleDecimals, payDecimals)
				if err != nil {
					b.logger.Warn("participant read failed",
						zap.String("address", addresses[i].Hex()),
						zap.Error(err))
					return
				}
				records[i] = rec
			}(i)
		}
		wg.Wait()
	}

	out := make([]domain.ParticipantRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalPurchased > out[j].TotalPurchased
	})
	return out, nil
}

// buildOne assembles one record. The summary read is required; entry,
// rewards, and whitelist reads degrade individually.
func (b *Builder) buildOne(ctx context.Context, addr common.Address, eventClaimed *big.Int, saleDecimals, payDecimals uint8) (*domain.ParticipantRecord, error) {
	summary, err := b.reader.ParticipantSummary(ctx, addr)
	if err != nil {
		return nil, err
	}

	entrySum := new(big.Int)
	tierNames := make(map[string]struct{})
	var lastPurchase int64
	for i := 0; i < summary.EntryCount; i++ {
		entry, err := b.reader.ParticipationEntry(ctx, addr, i)
		if err != nil {
			b.logger.Warn("participation entry read failed",
				zap.String("address", addr.Hex()),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		if entry.Claimed != nil {
			entrySum.Add(entrySum, entry.Claimed)
		}
		if tier, ok := domain.TierByLockup(b.tiers, entry.StakingOption); ok {
			tierNames[tier.Name] = struct{}{}
		}
		if entry.PurchasedAt > lastPurchase {
			lastPurchase = entry.PurchasedAt
		}
	}

	claimed := dedup.ReconcileClaimed(summary.TotalClaimed, entrySum, eventClaimed)

	rewards, err := b.reader.EstimatedRewards(ctx, addr)
	if err != nil {
		b.logger.Warn("estimated rewards read failed",
			zap.String("address", addr.Hex()),
			zap.Error(err))
		rewards = nil
	}

	whitelisted, err := b.reader.IsWhitelisted(ctx, addr)
	if err != nil {
		whitelisted = false
	}

	return &domain.ParticipantRecord{
		Address:          addr,
		TotalPurchased:   stats.Scale(summary.TotalPurchased, saleDecimals),
		TotalPaid:        stats.Scale(summary.TotalPaid, payDecimals),
		TotalClaimed:     stats.Scale(claimed, saleDecimals),
		EstimatedRewards: stats.Scale(rewards, saleDecimals),
		TierSummary:      summarizeTiers(tierNames),
		Whitelisted:      whitelisted,
		Participations:   summary.EntryCount,
		LastPurchaseTime: lastPurchase,
	}, nil
}

func summarizeTiers(names map[string]struct{}) string {
	switch len(names) {
	case 0:
		return domain.TierSummaryNone
	case 1:
		for name := range names {
			return name
		}
	}
	return domain.TierSummaryMultiple
}
