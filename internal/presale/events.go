package presale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"presale-dashboard/internal/domain"
)

// EventFilter is one named log filter over the presale contract.
// Query produces the bounded-range FilterQuery a fetcher window issues.
type EventFilter struct {
	Name  string
	topic common.Hash
	addr  common.Address
}

// Query builds the filter query for [from, to] inclusive.
func (f EventFilter) Query(from, to uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{f.addr},
		Topics:    [][]common.Hash{{f.topic}},
	}
}

// Filters returns the named event filters the aggregation pipeline
// consumes: purchases, claims, reward claims, withdrawals, and
// whitelist changes.
func (b *Binding) Filters() []EventFilter {
	return []EventFilter{
		{Name: "TokensPurchased", topic: purchaseTopic, addr: b.address},
		{Name: "TokensClaimed", topic: claimTopic, addr: b.address},
		{Name: "RewardClaimed", topic: rewardTopic, addr: b.address},
		{Name: "PaymentWithdrawn", topic: withdrawalTopic, addr: b.address},
		{Name: "WhitelistUpdated", topic: whitelistTopic, addr: b.address},
	}
}

// DecodeLog turns a raw contract log into a domain event. Logs whose
// topic0 matches no known event return an error; callers skip them.
func DecodeLog(lg types.Log) (*domain.Event, error) {
	if len(lg.Topics) == 0 {
		return nil, fmt.Errorf("log %s/%d has no topics", lg.TxHash.Hex(), lg.Index)
	}

	ev := &domain.Event{
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
		BlockNumber: lg.BlockNumber,
	}

	// Every event we track carries exactly one indexed address.
	known := lg.Topics[0] == purchaseTopic || lg.Topics[0] == claimTopic ||
		lg.Topics[0] == rewardTopic || lg.Topics[0] == withdrawalTopic ||
		lg.Topics[0] == whitelistTopic
	if known && len(lg.Topics) < 2 {
		return nil, fmt.Errorf("log %s/%d missing indexed address topic", lg.TxHash.Hex(), lg.Index)
	}

	switch lg.Topics[0] {
	case purchaseTopic:
		out, err := presaleABI.Unpack("TokensPurchased", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode purchase: %w", err)
		}
		ev.Kind = domain.KindPurchase
		ev.Buyer = common.BytesToAddress(lg.Topics[1].Bytes())
		ev.TokenAmount = out[0].(*big.Int)
		ev.PaymentAmount = out[1].(*big.Int)
		ev.StakingOption = out[2].(*big.Int).Uint64()

	case claimTopic:
		out, err := presaleABI.Unpack("TokensClaimed", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode claim: %w", err)
		}
		ev.Kind = domain.KindClaim
		ev.Claimant = common.BytesToAddress(lg.Topics[1].Bytes())
		ev.Amount = out[0].(*big.Int)

	case rewardTopic:
		out, err := presaleABI.Unpack("RewardClaimed", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode reward claim: %w", err)
		}
		ev.Kind = domain.KindRewardClaim
		ev.Claimant = common.BytesToAddress(lg.Topics[1].Bytes())
		ev.Amount = out[0].(*big.Int)

	case withdrawalTopic:
		out, err := presaleABI.Unpack("PaymentWithdrawn", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode withdrawal: %w", err)
		}
		ev.Kind = domain.KindWithdrawal
		ev.Recipient = common.BytesToAddress(lg.Topics[1].Bytes())
		ev.Amount = out[0].(*big.Int)

	case whitelistTopic:
		out, err := presaleABI.Unpack("WhitelistUpdated", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode whitelist change: %w", err)
		}
		ev.Kind = domain.KindWhitelistChange
		ev.User = common.BytesToAddress(lg.Topics[1].Bytes())
		ev.Whitelisted = out[0].(bool)

	default:
		return nil, fmt.Errorf("log %s/%d: unknown topic %s", lg.TxHash.Hex(), lg.Index, lg.Topics[0].Hex())
	}

	return ev, nil
}

// DecodeLogs decodes a batch, skipping undecodable entries and
// returning how many were skipped.
func DecodeLogs(logs []types.Log) ([]domain.Event, int) {
	events := make([]domain.Event, 0, len(logs))
	skipped := 0
	for _, lg := range logs {
		ev, err := DecodeLog(lg)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, *ev)
	}
	return events, skipped
}
