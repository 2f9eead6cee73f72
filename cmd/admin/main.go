// Package main is the owner-side admin tool. It signs and submits the
// presale contract's management transactions: pausing, price and cap
// updates, whitelist changes, deposits, and withdrawals.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"presale-dashboard/internal/config"
	"presale-dashboard/internal/eth"
	"presale-dashboard/internal/logging"
	"presale-dashboard/internal/presale"
)

const usage = `usage: admin [flags] <command> [args]

commands:
  pause
  unpause
  set-state <ordinal>
  set-price <base-units>
  set-caps <soft-base-units> <hard-base-units>
  set-unlocks <initial-percent> <periodic-percent>
  set-claim-period <seconds>
  whitelist <add|remove> <address>[,<address>...]
  deposit <base-units>
  withdraw-payment <base-units>
  withdraw-unsold
`

func main() {
	config.LoadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("ETH_RPC_ENDPOINT"), "Ethereum RPC HTTP endpoint")
	contractAddr := flag.String("contract", os.Getenv("PRESALE_CONTRACT"), "Presale contract address")
	keyHex := flag.String("owner-key", os.Getenv("PRESALE_OWNER_KEY"), "Owner private key (hex)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Transaction submission timeout")

	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !common.IsHexAddress(*contractAddr) {
		logger.Fatal("--contract must be a hex contract address", zap.String("contract", *contractAddr))
	}
	if *keyHex == "" {
		logger.Fatal("--owner-key is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(*keyHex, "0x"))
	if err != nil {
		logger.Fatal("parse owner key", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := eth.Dial(ctx, *rpcEndpoint)
	if err != nil {
		logger.Fatal("dial rpc", zap.Error(err))
	}
	defer client.Close()

	writer, err := presale.NewWriter(ctx, client, common.HexToAddress(*contractAddr), key, logger.Named("writer"))
	if err != nil {
		logger.Fatal("create writer", zap.Error(err))
	}
	logger.Info("submitting as owner", zap.String("from", writer.From().Hex()))

	hash, err := dispatch(ctx, writer, flag.Args())
	if err != nil {
		logger.Fatal("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
	logger.Info("transaction submitted", zap.String("tx", hash.Hex()))
}

func dispatch(ctx context.Context, w *presale.Writer, args []string) (common.Hash, error) {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "pause":
		return w.Pause(ctx)
	case "unpause":
		return w.Unpause(ctx)
	case "set-state":
		if len(rest) != 1 {
			return common.Hash{}, fmt.Errorf("set-state expects one ordinal argument")
		}
		ordinal, err := strconv.ParseUint(rest[0], 10, 8)
		if err != nil {
			return common.Hash{}, fmt.Errorf("parse ordinal %q: %w", rest[0], err)
		}
		return w.SetPresaleState(ctx, uint8(ordinal))
	case "set-price":
		price, err := parseAmounts(rest, 1, "set-price")
		if err != nil {
			return common.Hash{}, err
		}
		return w.SetSalePrice(ctx, price[0])
	case "set-caps":
		caps, err := parseAmounts(rest, 2, "set-caps")
		if err != nil {
			return common.Hash{}, err
		}
		return w.SetCaps(ctx, caps[0], caps[1])
	case "set-unlocks":
		pcts, err := parseAmounts(rest, 2, "set-unlocks")
		if err != nil {
			return common.Hash{}, err
		}
		return w.SetUnlockPercents(ctx, pcts[0], pcts[1])
	case "set-claim-period":
		period, err := parseAmounts(rest, 1, "set-claim-period")
		if err != nil {
			return common.Hash{}, err
		}
		return w.SetClaimPeriod(ctx, period[0])
	case "whitelist":
		if len(rest) != 2 {
			return common.Hash{}, fmt.Errorf("whitelist expects <add|remove> <addresses>")
		}
		status := rest[0] == "add"
		if !status && rest[0] != "remove" {
			return common.Hash{}, fmt.Errorf("whitelist action must be add or remove, got %q", rest[0])
		}
		users, err := parseAddresses(rest[1])
		if err != nil {
			return common.Hash{}, err
		}
		return w.UpdateWhitelist(ctx, users, status)
	case "deposit":
		amount, err := parseAmounts(rest, 1, "deposit")
		if err != nil {
			return common.Hash{}, err
		}
		return w.DepositTokens(ctx, amount[0])
	case "withdraw-payment":
		amount, err := parseAmounts(rest, 1, "withdraw-payment")
		if err != nil {
			return common.Hash{}, err
		}
		return w.WithdrawPayment(ctx, amount[0])
	case "withdraw-unsold":
		return w.WithdrawUnsoldTokens(ctx)
	default:
		return common.Hash{}, fmt.Errorf("unknown command %q", cmd)
	}
}

// parseAmounts parses decimal base-unit arguments, preserving full
// uint256 precision.
func parseAmounts(args []string, want int, cmd string) ([]*big.Int, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%s expects %d numeric argument(s), got %d", cmd, want, len(args))
	}
	out := make([]*big.Int, 0, want)
	for _, raw := range args {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("%s: %q is not a non-negative decimal integer", cmd, raw)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseAddresses(raw string) ([]common.Address, error) {
	parts := strings.Split(raw, ",")
	out := make([]common.Address, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if !common.IsHexAddress(p) {
			return nil, fmt.Errorf("invalid address %q", p)
		}
		out = append(out, common.HexToAddress(p))
	}
	return out, nil
}
