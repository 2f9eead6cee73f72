// Package presale is the typed binding to the presale contract: view
// reads, event log decoding, and owner transaction submission. It is
// deliberately a thin layer; the contract itself is the source of
// truth for every invariant.
package presale

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"presale-dashboard/internal/eth"
	"presale-dashboard/internal/observability"
)

// DefaultDecimals is used when a token's decimals() read fails.
const DefaultDecimals uint8 = 18

// ErrZeroTokenAddress indicates the contract reports no sale token;
// nothing meaningful can be aggregated. Structural, not transient.
var ErrZeroTokenAddress = errors.New("presale: sale token address is zero")

// Binding wraps the presale contract's read surface over an injected
// provider.
type Binding struct {
	client           eth.Client
	address          common.Address
	fallbackDecimals uint8
	logger           *zap.Logger
}

// BindingOptions configures a Binding.
type BindingOptions struct {
	Client           eth.Client
	Address          common.Address
	FallbackDecimals uint8 // 0 means DefaultDecimals
	Logger           *zap.Logger
}

// NewBinding creates a contract binding.
func NewBinding(opts BindingOptions) *Binding {
	fallback := opts.FallbackDecimals
	if fallback == 0 {
		fallback = DefaultDecimals
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Binding{
		client:           opts.Client,
		address:          opts.Address,
		fallbackDecimals: fallback,
		logger:           logger,
	}
}

// Address returns the bound contract address.
func (b *Binding) Address() common.Address {
	return b.address
}

// call packs a view method, executes it, and unpacks the outputs.
func (b *Binding) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	begin := time.Now()
	raw, err := b.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	observability.RecordRPCCall("eth_call", time.Since(begin).Seconds())
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func (b *Binding) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := b.call(ctx, presaleABI, b.address, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return v, nil
}

func (b *Binding) callAddress(ctx context.Context, method string) (common.Address, error) {
	out, err := b.call(ctx, presaleABI, b.address, method)
	if err != nil {
		return common.Address{}, err
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return v, nil
}

func (b *Binding) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	out, err := b.call(ctx, presaleABI, b.address, method, args...)
	if err != nil {
		return false, err
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return v, nil
}

// Owner returns the contract owner.
func (b *Binding) Owner(ctx context.Context) (common.Address, error) {
	return b.callAddress(ctx, "owner")
}

// SaleToken returns the token being sold.
func (b *Binding) SaleToken(ctx context.Context) (common.Address, error) {
	return b.callAddress(ctx, "saleToken")
}

// PaymentToken returns the payment currency token.
func (b *Binding) PaymentToken(ctx context.Context) (common.Address, error) {
	return b.callAddress(ctx, "paymentToken")
}

// Paused reports the contract pause flag.
func (b *Binding) Paused(ctx context.Context) (bool, error) {
	return b.callBool(ctx, "paused")
}

// IsWhitelisted reports a user's whitelist status.
func (b *Binding) IsWhitelisted(ctx context.Context, user common.Address) (bool, error) {
	return b.callBool(ctx, "isWhitelisted", user)
}

// PresaleState returns the contract's raw lifecycle ordinal.
func (b *Binding) PresaleState(ctx context.Context) (uint8, error) {
	out, err := b.call(ctx, presaleABI, b.address, "presaleState")
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("presaleState: unexpected output type %T", out[0])
	}
	return v, nil
}

// ParticipantSummary is the contract's running per-address aggregate.
type ParticipantSummary struct {
	TotalPurchased *big.Int
	TotalPaid      *big.Int
	TotalClaimed   *big.Int
	EntryCount     int
}

// ParticipantSummary reads the running aggregate for one address.
func (b *Binding) ParticipantSummary(ctx context.Context, user common.Address) (*ParticipantSummary, error) {
	out, err := b.call(ctx, presaleABI, b.address, "participants", user)
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("participants: expected 4 outputs, got %d", len(out))
	}
	return &ParticipantSummary{
		TotalPurchased: out[0].(*big.Int),
		TotalPaid:      out[1].(*big.Int),
		TotalClaimed:   out[2].(*big.Int),
		EntryCount:     int(out[3].(*big.Int).Int64()),
	}, nil
}

// ParticipationEntry is one discrete purchase record held by the
// contract, indexed 0..EntryCount-1.
type ParticipationEntry struct {
	Amount        *big.Int
	Paid          *big.Int
	Claimed       *big.Int
	StakingOption uint64 // lockup seconds
	PurchasedAt   int64  // unix seconds
}

// ParticipationEntry reads one purchase record.
func (b *Binding) ParticipationEntry(ctx context.Context, user common.Address, index int) (*ParticipationEntry, error) {
	out, err := b.call(ctx, presaleABI, b.address, "participationDetail", user, big.NewInt(int64(index)))
	if err != nil {
		return nil, err
	}
	if len(out) != 5 {
		return nil, fmt.Errorf("participationDetail: expected 5 outputs, got %d", len(out))
	}
	return &ParticipationEntry{
		Amount:        out[0].(*big.Int),
		Paid:          out[1].(*big.Int),
		Claimed:       out[2].(*big.Int),
		StakingOption: out[3].(*big.Int).Uint64(),
		PurchasedAt:   out[4].(*big.Int).Int64(),
	}, nil
}

// EstimatedRewards reads the live staking reward projection for an
// address. Not cached per entry.
func (b *Binding) EstimatedRewards(ctx context.Context, user common.Address) (*big.Int, error) {
	return b.callUint(ctx, "estimatedRewards", user)
}

// TokenDecimals reads decimals() from a token. On failure it returns
// the configured fallback; scaling must never use a hardcoded constant
// when the token itself can answer.
func (b *Binding) TokenDecimals(ctx context.Context, token common.Address) uint8 {
	out, err := b.call(ctx, erc20ABI, token, "decimals")
	if err != nil {
		observability.RecordContractFallback()
		b.logger.Warn("decimals read failed, using fallback",
			zap.String("token", token.Hex()),
			zap.Uint8("fallback", b.fallbackDecimals),
			zap.Error(err))
		return b.fallbackDecimals
	}
	v, ok := out[0].(uint8)
	if !ok {
		return b.fallbackDecimals
	}
	return v
}

// TokenBalance reads an ERC-20 balance.
func (b *Binding) TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	out, err := b.call(ctx, erc20ABI, token, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected output type %T", out[0])
	}
	return v, nil
}

// ReadBundle is the result of the parallel-join read step: every
// independent view the aggregator needs, each already substituted with
// its fallback if the individual read failed. The join itself never
// fails; only a zero sale token address is structural.
type ReadBundle struct {
	SaleToken    common.Address
	PaymentToken common.Address
	SaleDecimals uint8
	PayDecimals  uint8

	Paused       bool
	StateOrdinal uint8

	SalePrice             *big.Int
	HardCap               *big.Int
	SoftCap               *big.Int
	StartTime             int64
	EndTime               int64
	ClaimStart            int64
	ClaimPeriod           int64
	InitialUnlockPercent  int64
	PeriodicUnlockPercent int64

	TotalTokensSold  *big.Int
	TotalRaised      *big.Int
	TokenBalance     *big.Int // sale tokens held by the contract
	ParticipantCount int

	// ReadErrors counts individual reads that fell back to defaults.
	ReadErrors int
}

// FetchBundle issues all independent contract reads together and joins
// on completion. Each read recovers locally with a zero-value fallback;
// failures are counted, logged, and never abort the bundle.
func (b *Binding) FetchBundle(ctx context.Context) (*ReadBundle, error) {
	bundle := &ReadBundle{
		SalePrice:       new(big.Int),
		HardCap:         new(big.Int),
		SoftCap:         new(big.Int),
		TotalTokensSold: new(big.Int),
		TotalRaised:     new(big.Int),
		TokenBalance:    new(big.Int),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex // guards bundle.ReadErrors only
	)

	fallback := func(name string, err error) {
		mu.Lock()
		bundle.ReadErrors++
		mu.Unlock()
		observability.RecordContractFallback()
		b.logger.Warn("contract read failed, using fallback", zap.String("read", name), zap.Error(err))
	}

	// Each goroutine writes a distinct field; merge happens at the join.
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				fallback(name, err)
			}
		}()
	}

	run("saleToken", func() error {
		addr, err := b.SaleToken(ctx)
		if err != nil {
			return err
		}
		bundle.SaleToken = addr
		return nil
	})
	run("paymentToken", func() error {
		addr, err := b.PaymentToken(ctx)
		if err != nil {
			return err
		}
		bundle.PaymentToken = addr
		return nil
	})
	run("paused", func() error {
		v, err := b.Paused(ctx)
		if err != nil {
			return err
		}
		bundle.Paused = v
		return nil
	})
	run("presaleState", func() error {
		v, err := b.PresaleState(ctx)
		if err != nil {
			return err
		}
		bundle.StateOrdinal = v
		return nil
	})
	run("salePrice", func() error { return b.readUintInto(ctx, "salePrice", &bundle.SalePrice) })
	run("hardCap", func() error { return b.readUintInto(ctx, "hardCap", &bundle.HardCap) })
	run("softCap", func() error { return b.readUintInto(ctx, "softCap", &bundle.SoftCap) })
	run("totalTokensSold", func() error { return b.readUintInto(ctx, "totalTokensSold", &bundle.TotalTokensSold) })
	run("totalRaised", func() error { return b.readUintInto(ctx, "totalRaised", &bundle.TotalRaised) })
	run("startTime", func() error { return b.readTimeInto(ctx, "startTime", &bundle.StartTime) })
	run("endTime", func() error { return b.readTimeInto(ctx, "endTime", &bundle.EndTime) })
	run("claimStart", func() error { return b.readTimeInto(ctx, "claimStart", &bundle.ClaimStart) })
	run("claimPeriod", func() error { return b.readTimeInto(ctx, "claimPeriod", &bundle.ClaimPeriod) })
	run("initialUnlockPercent", func() error {
		return b.readTimeInto(ctx, "initialUnlockPercent", &bundle.InitialUnlockPercent)
	})
	run("periodicUnlockPercent", func() error {
		return b.readTimeInto(ctx, "periodicUnlockPercent", &bundle.PeriodicUnlockPercent)
	})
	run("participantCount", func() error {
		v, err := b.callUint(ctx, "participantCount")
		if err != nil {
			return err
		}
		bundle.ParticipantCount = int(v.Int64())
		return nil
	})

	wg.Wait()

	if bundle.SaleToken == (common.Address{}) {
		return nil, ErrZeroTokenAddress
	}

	// Dependent reads: decimals and contract token balance need the
	// token addresses from the first wave.
	bundle.SaleDecimals = b.TokenDecimals(ctx, bundle.SaleToken)
	if bundle.PaymentToken == (common.Address{}) {
		// Native-currency presale; payment amounts use chain decimals.
		bundle.PayDecimals = DefaultDecimals
	} else {
		bundle.PayDecimals = b.TokenDecimals(ctx, bundle.PaymentToken)
	}

	if balance, err := b.TokenBalance(ctx, bundle.SaleToken, b.address); err != nil {
		fallback("tokenBalance", err)
	} else {
		bundle.TokenBalance = balance
	}

	return bundle, nil
}

func (b *Binding) readUintInto(ctx context.Context, method string, dst **big.Int) error {
	v, err := b.callUint(ctx, method)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (b *Binding) readTimeInto(ctx context.Context, method string, dst *int64) error {
	v, err := b.callUint(ctx, method)
	if err != nil {
		return err
	}
	*dst = v.Int64()
	return nil
}
