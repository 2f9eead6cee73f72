package stats

import (
	"time"

	"go.uber.org/zap"

	"presale-dashboard/internal/dedup"
	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/presale"
)

// Aggregator turns one refresh cycle's raw inputs into the derived
// snapshot the dashboard serves.
type Aggregator struct {
	tiers  []domain.StakingTier
	logger *zap.Logger
	now    func() time.Time
}

type Options struct {
	Tiers  []domain.StakingTier
	Logger *zap.Logger
	Now    func() time.Time
}

func New(opts Options) *Aggregator {
	tiers := opts.Tiers
	if len(tiers) == 0 {
		tiers = domain.DefaultTiers
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{tiers: tiers, logger: logger, now: now}
}

// Input carries everything one Build call consumes. Events must
// already be deduplicated; participants come pre-reconciled.
type Input struct {
	Bundle        *presale.ReadBundle
	Events        []domain.Event
	Participants  []domain.ParticipantRecord
	Timestamps    func(blockNumber uint64) (int64, error)
	FailedWindows int
	LatestBlock   uint64
}

// Build computes the full derived snapshot. It never fails: missing
// inputs degrade individual sections rather than the whole result.
func (a *Aggregator) Build(in Input) domain.AggregateStats {
	b := in.Bundle
	if b == nil {
		b = &presale.ReadBundle{}
	}
	tsOf := in.Timestamps
	if tsOf == nil {
		tsOf = func(uint64) (int64, error) { return 0, nil }
	}

	byKind := dedup.ByKind(in.Events)
	purchases := byKind[domain.KindPurchase]
	rewardClaims := byKind[domain.KindRewardClaim]

	state, known := domain.ParseState(b.StateOrdinal)
	if !known {
		a.logger.Warn("unknown presale state ordinal", zap.Uint8("ordinal", b.StateOrdinal))
	}

	stats := domain.AggregateStats{
		TotalSold:        Scale(b.TotalTokensSold, b.SaleDecimals),
		TotalRaised:      Scale(b.TotalRaised, b.PayDecimals),
		HardCap:          Scale(b.HardCap, b.SaleDecimals),
		SoftCap:          Scale(b.SoftCap, b.SaleDecimals),
		TokenBalance:     Scale(b.TokenBalance, b.SaleDecimals),
		SalePrice:        Scale(b.SalePrice, b.PayDecimals),
		State:            state,
		StateKnown:       known,
		Paused:           b.Paused,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		ClaimStart:       b.ClaimStart,
		ParticipantCount: b.ParticipantCount,

		Monthly:      monthlyBuckets(purchases, tsOf, b.SaleDecimals, b.PayDecimals),
		RewardClaims: claimBuckets(rewardClaims, tsOf, b.SaleDecimals),
		Distribution: distributionBuckets(purchases, b.SaleDecimals),
		TierTotals:   tierTotals(purchases, a.tiers, b.SaleDecimals),
		Unlocks: unlockSchedule(b.ClaimStart, uint64(b.ClaimPeriod),
			float64(b.InitialUnlockPercent), float64(b.PeriodicUnlockPercent)),

		FailedWindows: in.FailedWindows,
		LatestBlock:   in.LatestBlock,
		FetchedAt:     a.now().UnixMilli(),
	}

	if b.TotalTokensSold != nil {
		stats.RawTotalSold = b.TotalTokensSold.String()
	} else {
		stats.RawTotalSold = "0"
	}
	if b.TotalRaised != nil {
		stats.RawTotalRaised = b.TotalRaised.String()
	} else {
		stats.RawTotalRaised = "0"
	}

	if stats.ParticipantCount == 0 {
		stats.ParticipantCount = len(in.Participants)
	}
	if stats.ParticipantCount > 0 {
		stats.AveragePurchase = stats.TotalRaised / float64(stats.ParticipantCount)
	}

	stats.Alerts = buildAlerts(alertInput{
		TokenBalance: stats.TokenBalance,
		TotalSold:    stats.TotalSold,
		HardCap:      stats.HardCap,
		Paused:       stats.Paused,
		StartTime:    stats.StartTime,
		EndTime:      stats.EndTime,
		StateKnown:   stats.StateKnown,
		StateOrdinal: b.StateOrdinal,
	})

	return stats
}
