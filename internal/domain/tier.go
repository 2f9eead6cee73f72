package domain

// StakingTier is a named lockup-duration option offered at purchase
// time. The contract identifies tiers by their lockup in seconds; the
// names exist only for display.
type StakingTier struct {
	Name          string
	LockupSeconds uint64
	RewardRateBps uint64 // annualized reward rate, basis points
}

const daySeconds = 24 * 60 * 60

// DefaultTiers matches the lockup options the presale contract was
// deployed with. A purchase whose staking option matches none of these
// still counts toward total sold but is dropped from the tier breakdown.
var DefaultTiers = []StakingTier{
	{Name: "3-Month", LockupSeconds: 90 * daySeconds, RewardRateBps: 500},
	{Name: "6-Month", LockupSeconds: 180 * daySeconds, RewardRateBps: 1200},
	{Name: "9-Month", LockupSeconds: 270 * daySeconds, RewardRateBps: 2000},
	{Name: "12-Month", LockupSeconds: 365 * daySeconds, RewardRateBps: 3000},
}

// TierByLockup finds the tier configured for the given lockup seconds.
func TierByLockup(tiers []StakingTier, lockupSeconds uint64) (StakingTier, bool) {
	for _, t := range tiers {
		if t.LockupSeconds == lockupSeconds {
			return t, true
		}
	}
	return StakingTier{}, false
}
