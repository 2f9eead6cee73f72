// Package main backfills historical presale events over an explicit
// block range into the ClickHouse archive and advances the fetch
// checkpoint so the server does not re-scan the range.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"presale-dashboard/internal/config"
	"presale-dashboard/internal/eth"
	"presale-dashboard/internal/fetcher"
	"presale-dashboard/internal/logging"
	"presale-dashboard/internal/presale"
	"presale-dashboard/internal/storage"
	chstore "presale-dashboard/internal/storage/clickhouse"
	"presale-dashboard/internal/storage/migrations"
	pgstore "presale-dashboard/internal/storage/postgres"
)

func main() {
	config.LoadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("ETH_RPC_ENDPOINT"), "Ethereum RPC HTTP endpoint")
	contractAddr := flag.String("contract", os.Getenv("PRESALE_CONTRACT"), "Presale contract address")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (optional, advances the checkpoint)")
	fromBlock := flag.Uint64("from", 0, "First block of the range")
	toBlock := flag.Uint64("to", 0, "Last block of the range (0 uses the chain head)")
	windowSize := flag.Uint64("window", 0, "Blocks per log query (0 uses the default)")
	timeout := flag.Duration("timeout", 30*time.Minute, "Overall run timeout")

	flag.Parse()

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !common.IsHexAddress(*contractAddr) {
		logger.Fatal("--contract must be a hex contract address", zap.String("contract", *contractAddr))
	}
	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := eth.Dial(ctx, *rpcEndpoint)
	if err != nil {
		logger.Fatal("dial rpc", zap.Error(err))
	}
	defer client.Close()

	chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatal("clickhouse migrations", zap.Error(err))
	}
	defer chConn.Close()
	archive := chstore.NewEventArchive(chConn)

	binding := presale.NewBinding(presale.BindingOptions{
		Client:  client,
		Address: common.HexToAddress(*contractAddr),
		Logger:  logger.Named("contract"),
	})
	f := fetcher.New(fetcher.Options{
		Client:     client,
		WindowSize: *windowSize,
		Logger:     logger.Named("fetcher"),
	})

	end := *toBlock
	if end == 0 {
		end, err = client.BlockNumber(ctx)
		if err != nil {
			logger.Fatal("resolve chain head", zap.Error(err))
		}
	}

	logger.Info("backfill starting",
		zap.Uint64("from", *fromBlock),
		zap.Uint64("to", end))

	result, err := f.FetchRange(ctx, binding.Filters(), *fromBlock, end)
	if err != nil {
		logger.Fatal("fetch range", zap.Error(err))
	}
	events, skipped := presale.DecodeLogs(result.Logs)

	if err := archive.InsertBulk(ctx, events); err != nil {
		logger.Fatal("archive events", zap.Error(err))
	}

	if *postgresDSN != "" {
		if err := advanceCheckpoint(ctx, *postgresDSN, result.ToBlock, logger); err != nil {
			logger.Fatal("advance checkpoint", zap.Error(err))
		}
	}

	logger.Info("backfill complete",
		zap.Int("events", len(events)),
		zap.Int("skipped_logs", skipped),
		zap.Int("failed_windows", result.FailedWindows),
		zap.Uint64("to_block", result.ToBlock))
}

// advanceCheckpoint moves the stored checkpoint forward, never back.
func advanceCheckpoint(ctx context.Context, dsn string, block uint64, logger *zap.Logger) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}

	store := pgstore.NewCheckpointStore(pool)
	current, err := store.GetCheckpoint(ctx)
	if err == nil && current.Block >= block {
		logger.Info("checkpoint already ahead", zap.Uint64("checkpoint", current.Block))
		return nil
	}
	return store.SetCheckpoint(ctx, &storage.FetchCheckpoint{Block: block})
}
