package dedup

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
)

// ReconcileClaimed combines the three independent sources of a
// participant's total claimed amount: the contract's running
// accumulator, the sum of per-entry detail fields, and the sum of that
// participant's claim events. Each source may lag the others depending
// on contract internals, so the reported value is the maximum of the
// three: undercounting is worse than overcounting on an admin
// dashboard. Heuristic, not a verified invariant.
func ReconcileClaimed(accumulator, entrySum, eventSum *big.Int) *big.Int {
	max := new(big.Int)
	for _, src := range []*big.Int{accumulator, entrySum, eventSum} {
		if src != nil && src.Cmp(max) > 0 {
			max.Set(src)
		}
	}
	return max
}

// SumClaimEvents totals claim-event amounts per claimant. Only
// KindClaim contributes; reward claims are tracked separately.
func SumClaimEvents(events []domain.Event) map[common.Address]*big.Int {
	sums := make(map[common.Address]*big.Int)
	for _, ev := range events {
		if ev.Kind != domain.KindClaim || ev.Amount == nil {
			continue
		}
		total, ok := sums[ev.Claimant]
		if !ok {
			total = new(big.Int)
			sums[ev.Claimant] = total
		}
		total.Add(total, ev.Amount)
	}
	return sums
}
