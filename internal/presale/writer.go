package presale

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"presale-dashboard/internal/eth"
)

// Writer submits owner-only transactions to the presale contract. A
// revert or rejection surfaces to the caller; it never touches cached
// read state, and callers re-run the aggregation pipeline afterwards
// to reflect any partial change.
type Writer struct {
	client  eth.TxClient
	address common.Address
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	logger  *zap.Logger
}

// NewWriter creates a transaction writer for the given owner key.
func NewWriter(ctx context.Context, client eth.TxClient, contract common.Address, key *ecdsa.PrivateKey, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return &Writer{
		client:  client,
		address: contract,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		logger:  logger,
	}, nil
}

// From returns the sender address derived from the owner key.
func (w *Writer) From() common.Address {
	return w.from
}

// submit packs, signs, and sends one contract call.
func (w *Writer) submit(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	data, err := presaleABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	nonce, err := w.client.PendingNonceAt(ctx, w.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}

	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}

	gasLimit, err := w.client.EstimateGas(ctx, ethereum.CallMsg{
		From: w.from,
		To:   &w.address,
		Data: data,
	})
	if err != nil {
		// Estimation failure usually means the call would revert.
		return common.Hash{}, fmt.Errorf("estimate gas for %s: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &w.address,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := w.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send %s: %w", method, err)
	}

	w.logger.Info("transaction submitted",
		zap.String("method", method),
		zap.String("tx", signed.Hash().Hex()))
	return signed.Hash(), nil
}

// Pause pauses the presale.
func (w *Writer) Pause(ctx context.Context) (common.Hash, error) {
	return w.submit(ctx, "pause")
}

// Unpause resumes the presale.
func (w *Writer) Unpause(ctx context.Context) (common.Hash, error) {
	return w.submit(ctx, "unpause")
}

// SetPresaleState forces the lifecycle ordinal.
func (w *Writer) SetPresaleState(ctx context.Context, state uint8) (common.Hash, error) {
	return w.submit(ctx, "setPresaleState", state)
}

// SetSalePrice updates the token price in payment base units.
func (w *Writer) SetSalePrice(ctx context.Context, price *big.Int) (common.Hash, error) {
	return w.submit(ctx, "setSalePrice", price)
}

// SetCaps updates soft and hard caps.
func (w *Writer) SetCaps(ctx context.Context, soft, hard *big.Int) (common.Hash, error) {
	return w.submit(ctx, "setCaps", soft, hard)
}

// SetUnlockPercents updates the vesting percentages.
func (w *Writer) SetUnlockPercents(ctx context.Context, initial, periodic *big.Int) (common.Hash, error) {
	return w.submit(ctx, "setUnlockPercents", initial, periodic)
}

// SetClaimPeriod updates the vesting period length in seconds.
func (w *Writer) SetClaimPeriod(ctx context.Context, period *big.Int) (common.Hash, error) {
	return w.submit(ctx, "setClaimPeriod", period)
}

// UpdateWhitelist sets the whitelist status for a batch of users.
func (w *Writer) UpdateWhitelist(ctx context.Context, users []common.Address, status bool) (common.Hash, error) {
	return w.submit(ctx, "updateWhitelist", users, status)
}

// DepositTokens moves sale tokens into the contract.
func (w *Writer) DepositTokens(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return w.submit(ctx, "depositTokens", amount)
}

// WithdrawPayment withdraws raised payment currency.
func (w *Writer) WithdrawPayment(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return w.submit(ctx, "withdrawPayment", amount)
}

// WithdrawUnsoldTokens returns unsold sale tokens to the owner.
func (w *Writer) WithdrawUnsoldTokens(ctx context.Context) (common.Hash, error) {
	return w.submit(ctx, "withdrawUnsoldTokens")
}
