// Package main runs the presale dashboard service: the periodic
// on-chain refresher, the HTTP API, and the websocket push feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"presale-dashboard/internal/api"
	"presale-dashboard/internal/cache"
	"presale-dashboard/internal/config"
	"presale-dashboard/internal/eth"
	"presale-dashboard/internal/fetcher"
	"presale-dashboard/internal/logging"
	"presale-dashboard/internal/participants"
	"presale-dashboard/internal/presale"
	"presale-dashboard/internal/service"
	"presale-dashboard/internal/stats"
	"presale-dashboard/internal/storage"
	chstore "presale-dashboard/internal/storage/clickhouse"
	"presale-dashboard/internal/storage/memory"
	"presale-dashboard/internal/storage/migrations"
	pgstore "presale-dashboard/internal/storage/postgres"
)

const shutdownTimeout = 15 * time.Second

// allStores bundles the persistence backends the refresher needs.
type allStores struct {
	snapshots    storage.SnapshotStore
	participants storage.ParticipantStore
	checkpoints  storage.CheckpointStore
	archive      storage.EventArchive
}

func main() {
	// Load .env file if exists
	config.LoadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("ETH_RPC_ENDPOINT"), "Ethereum RPC HTTP endpoint")
	contractAddr := flag.String("contract", os.Getenv("PRESALE_CONTRACT"), "Presale contract address")
	deployBlock := flag.Uint64("deploy-block", envUint("PRESALE_DEPLOY_BLOCK", 0), "Contract deployment block (fetch fallback start)")
	startBlock := flag.Int64("start-block", envInt("PRESALE_START_BLOCK", -1), "Configured fetch start block (-1 uses the deploy block)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the stats cache (empty uses in-process cache)")
	redisPassword := flag.String("redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	refreshInterval := flag.Duration("refresh-interval", time.Minute, "Background refresh interval")
	cacheTTL := flag.Duration("cache-ttl", cache.DefaultTTL, "Stats cache TTL")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address")

	flag.Parse()

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Validate required flags
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !common.IsHexAddress(*contractAddr) {
		logger.Fatal("--contract must be a hex contract address", zap.String("contract", *contractAddr))
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal("create stores", zap.Error(err))
	}
	defer cleanup()

	cacheStore, closeCache, err := createCacheStore(ctx, *redisAddr, *redisPassword)
	if err != nil {
		logger.Fatal("create cache store", zap.Error(err))
	}
	defer closeCache()

	client, err := eth.Dial(ctx, *rpcEndpoint)
	if err != nil {
		logger.Fatal("dial rpc", zap.Error(err))
	}
	defer client.Close()

	binding := presale.NewBinding(presale.BindingOptions{
		Client:  client,
		Address: common.HexToAddress(*contractAddr),
		Logger:  logger.Named("contract"),
	})
	timestamps, err := eth.NewBlockTimestamps(client, 0, logger.Named("timestamps"))
	if err != nil {
		logger.Fatal("create timestamp cache", zap.Error(err))
	}

	refresher := service.New(service.Options{
		Contract: binding,
		Fetcher: fetcher.New(fetcher.Options{
			Client:      client,
			DeployBlock: *deployBlock,
			Logger:      logger.Named("fetcher"),
		}),
		Participants: participants.New(participants.Options{
			Reader: binding,
			Logger: logger.Named("participants"),
		}),
		Aggregator:  stats.New(stats.Options{Logger: logger.Named("stats")}),
		Timestamps:  timestamps.At,
		Snapshots:   stores.snapshots,
		Records:     stores.participants,
		Archive:     stores.archive,
		Checkpoints: stores.checkpoints,
		Cache: cache.New(cache.Options{
			Store:  cacheStore,
			TTL:    *cacheTTL,
			Logger: logger.Named("cache"),
		}),
		StartBlock: *startBlock,
		Logger:     logger.Named("refresher"),
	})

	hub := api.NewHub(logger.Named("ws"))
	feed, unsubscribe := refresher.Subscribe()
	go hub.Run(ctx, feed)

	server := api.NewServer(api.Options{
		Refresher:    refresher,
		Participants: stores.participants,
		Snapshots:    stores.snapshots,
		Hub:          hub,
		Logger:       logger.Named("api"),
	})
	httpServer := &http.Server{
		Addr:              *httpAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server listening", zap.String("addr", *httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := refresher.Run(ctx, *refreshInterval); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("refresher: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("component failed, shutting down", zap.Error(err))
	}

	cancel()
	unsubscribe()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// createStores builds the persistence layer and runs migrations when
// backed by real databases.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			snapshots:    memory.NewSnapshotStore(),
			participants: memory.NewParticipantStore(),
			checkpoints:  memory.NewCheckpointStore(),
			archive:      memory.NewEventArchive(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		snapshots:    pgstore.NewSnapshotStore(pool),
		participants: pgstore.NewParticipantStore(pool),
		checkpoints:  pgstore.NewCheckpointStore(pool),
		archive:      chstore.NewEventArchive(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// createCacheStore picks Redis when an address is configured and falls
// back to the in-process store otherwise.
func createCacheStore(ctx context.Context, addr, password string) (cache.Store, func(), error) {
	if addr == "" {
		return cache.NewMemoryStore(), func() {}, nil
	}
	client, err := cache.DialRedis(ctx, addr, password, 0)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func envUint(key string, fallback uint64) uint64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
