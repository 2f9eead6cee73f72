package stats

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
)

// monthLabel formats a timestamp as its calendar-month bucket label.
func monthLabel(ts int64) (string, int, time.Month) {
	t := time.Unix(ts, 0).UTC()
	return t.Format("Jan 2006"), t.Year(), t.Month()
}

// monthlyBuckets assigns each purchase to the calendar month of its
// block timestamp, summing amounts per bucket and counting distinct
// buyers with a per-bucket address set. tsOf resolves a block number
// to its timestamp; a failed lookup drops the event from the series
// (it still counts in totals upstream).
func monthlyBuckets(purchases []domain.Event, tsOf func(uint64) (int64, error), saleDecimals, payDecimals uint8) []domain.MonthBucket {
	type bucketKey struct {
		year  int
		month time.Month
	}
	buckets := make(map[bucketKey]*domain.MonthBucket)
	buyers := make(map[bucketKey]map[common.Address]struct{})

	for _, ev := range purchases {
		ts, err := tsOf(ev.BlockNumber)
		if err != nil {
			continue
		}

		label, year, month := monthLabel(ts)
		key := bucketKey{year, month}

		b, ok := buckets[key]
		if !ok {
			b = &domain.MonthBucket{Label: label, Year: year, Month: int(month)}
			buckets[key] = b
			buyers[key] = make(map[common.Address]struct{})
		}

		b.TokensSold += Scale(ev.TokenAmount, saleDecimals)
		b.Volume += Scale(ev.PaymentAmount, payDecimals)
		buyers[key][ev.Buyer] = struct{}{}
	}

	out := make([]domain.MonthBucket, 0, len(buckets))
	for key, b := range buckets {
		b.Participants = len(buyers[key])
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// claimBuckets builds the reward-claim monthly series.
func claimBuckets(rewardClaims []domain.Event, tsOf func(uint64) (int64, error), saleDecimals uint8) []domain.ClaimBucket {
	type bucketKey struct {
		year  int
		month time.Month
	}
	buckets := make(map[bucketKey]*domain.ClaimBucket)

	for _, ev := range rewardClaims {
		ts, err := tsOf(ev.BlockNumber)
		if err != nil {
			continue
		}

		label, year, month := monthLabel(ts)
		key := bucketKey{year, month}

		b, ok := buckets[key]
		if !ok {
			b = &domain.ClaimBucket{Label: label, Year: year, Month: int(month)}
			buckets[key] = b
		}
		b.Claimed += Scale(ev.Amount, saleDecimals)
		b.Count++
	}

	out := make([]domain.ClaimBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// defaultDistribution is the purchase-size histogram shown on the
// participants page.
func defaultDistribution() []domain.DistributionBucket {
	return []domain.DistributionBucket{
		{Label: "< 1K", Min: 0, Max: 1_000},
		{Label: "1K - 10K", Min: 1_000, Max: 10_000},
		{Label: "10K - 100K", Min: 10_000, Max: 100_000},
		{Label: "100K - 1M", Min: 100_000, Max: 1_000_000},
		{Label: "> 1M", Min: 1_000_000, Max: 0},
	}
}

// distributionBuckets counts purchases per size band. Band membership
// is [Min, Max); Max == 0 means unbounded.
func distributionBuckets(purchases []domain.Event, saleDecimals uint8) []domain.DistributionBucket {
	out := defaultDistribution()
	for _, ev := range purchases {
		amount := Scale(ev.TokenAmount, saleDecimals)
		for i := range out {
			if amount < out[i].Min {
				continue
			}
			if out[i].Max > 0 && amount >= out[i].Max {
				continue
			}
			out[i].Count++
			break
		}
	}
	return out
}

// tierTotals accumulates purchased token amounts per configured
// staking tier. A staking option matching no tier is dropped from the
// breakdown; it still counts toward total sold.
func tierTotals(purchases []domain.Event, tiers []domain.StakingTier, saleDecimals uint8) []domain.TierTotal {
	out := make([]domain.TierTotal, len(tiers))
	for i, tier := range tiers {
		out[i] = domain.TierTotal{Tier: tier.Name, LockupSeconds: tier.LockupSeconds}
	}

	for _, ev := range purchases {
		for i := range out {
			if out[i].LockupSeconds == ev.StakingOption {
				out[i].TokensStaked += Scale(ev.TokenAmount, saleDecimals)
				break
			}
		}
	}
	return out
}
