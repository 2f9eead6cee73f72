package domain

import "github.com/ethereum/go-ethereum/common"

// Tier summary values for participants whose entries do not map to a
// single configured tier.
const (
	TierSummaryMultiple = "Multiple"
	TierSummaryNone     = "None"
)

// ParticipantRecord is the derived per-address view of presale
// participation. Built fresh on every aggregation pass and replaced
// wholesale; never mutated in place. All monetary fields are
// decimal-adjusted.
type ParticipantRecord struct {
	Address          common.Address
	TotalPurchased   float64 // sale tokens bought
	TotalPaid        float64 // payment currency spent
	TotalClaimed     float64 // reconciled from three sources, see dedup.ReconcileClaimed
	EstimatedRewards float64 // live contract read, never cached per entry
	TierSummary      string  // single tier name, "Multiple", or "None"
	Whitelisted      bool
	Participations   int
	LastPurchaseTime int64 // unix seconds of newest purchase, for display sorting
}
