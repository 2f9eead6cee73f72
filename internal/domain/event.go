package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies the contract event a log was decoded from.
type EventKind string

const (
	KindPurchase        EventKind = "PURCHASE"
	KindClaim           EventKind = "CLAIM"
	KindRewardClaim     EventKind = "REWARD_CLAIM"
	KindWithdrawal      EventKind = "WITHDRAWAL"
	KindWhitelistChange EventKind = "WHITELIST_CHANGE"
)

// EventKey is the composite identity of a log: the emitting transaction
// plus the log's index within its block. Two fetches of the same log
// always produce the same key.
type EventKey struct {
	TxHash   common.Hash
	LogIndex uint
}

// Event is one decoded presale contract log. Immutable once fetched.
// Only the fields matching Kind are populated; amounts are raw base
// units and are scaled exactly once, inside the aggregator.
type Event struct {
	Kind        EventKind
	TxHash      common.Hash
	LogIndex    uint
	BlockNumber uint64

	// Purchase
	Buyer         common.Address
	TokenAmount   *big.Int
	PaymentAmount *big.Int
	StakingOption uint64 // lockup duration in seconds

	// Claim / RewardClaim
	Claimant common.Address

	// Withdrawal
	Recipient common.Address

	// Claim / RewardClaim / Withdrawal
	Amount *big.Int

	// WhitelistChange
	User        common.Address
	Whitelisted bool
}

// Key returns the dedup key for this event.
func (e *Event) Key() EventKey {
	return EventKey{TxHash: e.TxHash, LogIndex: e.LogIndex}
}
