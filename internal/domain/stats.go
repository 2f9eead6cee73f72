package domain

import (
	"time"
)

// PresaleState mirrors the contract's lifecycle ordinal.
type PresaleState int

const (
	StateNotStarted PresaleState = iota
	StateActive
	StateEnded
	StateClaimOpen
)

// ParseState maps a raw contract ordinal to a PresaleState. The second
// return is false for ordinals the contract version we track does not
// define; callers surface those as an alert rather than guessing.
func ParseState(ordinal uint8) (PresaleState, bool) {
	s := PresaleState(ordinal)
	if s < StateNotStarted || s > StateClaimOpen {
		return StateNotStarted, false
	}
	return s, true
}

func (s PresaleState) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateActive:
		return "Active"
	case StateEnded:
		return "Ended"
	case StateClaimOpen:
		return "ClaimOpen"
	default:
		return "Unknown"
	}
}

// MonthBucket aggregates activity for one calendar month.
type MonthBucket struct {
	Label        string  `json:"label"` // "Jan 2006"
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	TokensSold   float64 `json:"tokensSold"`
	Volume       float64 `json:"volume"`       // payment currency
	Participants int     `json:"participants"` // distinct buyers in the month
}

// ClaimBucket aggregates reward claims for one calendar month.
type ClaimBucket struct {
	Label   string  `json:"label"`
	Year    int     `json:"year"`
	Month   int     `json:"month"`
	Claimed float64 `json:"claimed"`
	Count   int     `json:"count"`
}

// DistributionBucket counts purchases whose token amount falls in
// [Min, Max). Max <= 0 means unbounded.
type DistributionBucket struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// TierTotal is the running staked total for one configured lockup tier.
type TierTotal struct {
	Tier          string  `json:"tier"`
	LockupSeconds uint64  `json:"lockupSeconds"`
	TokensStaked  float64 `json:"tokensStaked"`
}

// UnlockPoint is one step of the forward-looking vesting projection.
type UnlockPoint struct {
	Time    int64   `json:"time"` // unix seconds
	Percent float64 `json:"percent"`
}

// AggregateStats is the process-wide derived snapshot served to the
// dashboard. Every monetary field is decimal-adjusted before the
// struct is built; raw base-unit integers are carried only in the
// string-typed Raw fields so they survive JSON round-trips exactly.
type AggregateStats struct {
	TotalSold        float64      `json:"totalSold"`
	TotalRaised      float64      `json:"totalRaised"`
	HardCap          float64      `json:"hardCap"`
	SoftCap          float64      `json:"softCap"`
	TokenBalance     float64      `json:"tokenBalance"`
	SalePrice        float64      `json:"salePrice"`
	State            PresaleState `json:"state"`
	StateKnown       bool         `json:"stateKnown"`
	Paused           bool         `json:"paused"`
	StartTime        int64        `json:"startTime"`
	EndTime          int64        `json:"endTime"`
	ClaimStart       int64        `json:"claimStart"`
	ParticipantCount int          `json:"participantCount"`
	AveragePurchase  float64      `json:"averagePurchase"`

	RawTotalSold   string `json:"rawTotalSold"`   // base units, decimal string
	RawTotalRaised string `json:"rawTotalRaised"` // base units, decimal string

	Monthly      []MonthBucket        `json:"monthly"`
	RewardClaims []ClaimBucket        `json:"rewardClaims"`
	Distribution []DistributionBucket `json:"distribution"`
	TierTotals   []TierTotal          `json:"tierTotals"`
	Unlocks      []UnlockPoint        `json:"unlocks"`
	Alerts       []string             `json:"alerts"`

	// Fetch provenance. FailedWindows > 0 means the snapshot may
	// under-report history; the fetch is best-effort by contract.
	FailedWindows int    `json:"failedWindows"`
	LatestBlock   uint64 `json:"latestBlock"`
	FetchedAt     int64  `json:"fetchedAt"` // unix milliseconds
}

// Snapshot is a persisted AggregateStats with its capture time.
type Snapshot struct {
	TakenAt time.Time
	Stats   AggregateStats
}
