// Package service orchestrates the refresh cycle: contract reads, log
// fetching, deduplication, participant builds, aggregation, and the
// persistence fan-out.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"presale-dashboard/internal/cache"
	"presale-dashboard/internal/dedup"
	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/fetcher"
	"presale-dashboard/internal/observability"
	"presale-dashboard/internal/presale"
	"presale-dashboard/internal/stats"
	"presale-dashboard/internal/storage"
)

// Status is the refresher's externally visible lifecycle state.
type Status string

const (
	StatusIdle     Status = "IDLE"     // never refreshed
	StatusLoading  Status = "LOADING"  // first refresh in flight
	StatusFetching Status = "FETCHING" // refresh in flight with a prior snapshot
	StatusReady    Status = "READY"    // last refresh succeeded
	StatusError    Status = "ERROR"    // last refresh failed
)

// Step names one stage of a refresh cycle. Step errors carry the name
// so operators can tell a contract-read failure from a storage one.
type Step string

const (
	StepReadBundle        Step = "read_bundle"
	StepFetchEvents       Step = "fetch_events"
	StepArchiveEvents     Step = "archive_events"
	StepDedup             Step = "dedup"
	StepBuildParticipants Step = "build_participants"
	StepAggregate         Step = "aggregate"
	StepStoreSnapshot     Step = "store_snapshot"
	StepCacheSet          Step = "cache_set"
)

// StepError wraps a failure with the step it happened in.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("refresh step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ContractReader supplies the bundle read and the log filters.
type ContractReader interface {
	FetchBundle(ctx context.Context) (*presale.ReadBundle, error)
	Filters() []presale.EventFilter
}

// LogFetcher walks the chain for matching logs.
type LogFetcher interface {
	FetchLatest(ctx context.Context, filters []presale.EventFilter, configuredStart int64) (*fetcher.Result, error)
}

// ParticipantBuilder assembles per-address records from events.
type ParticipantBuilder interface {
	Build(ctx context.Context, events []domain.Event, saleDecimals, payDecimals uint8) ([]domain.ParticipantRecord, error)
}

// Refresher drives the periodic refresh cycle and serves cache-first
// reads between cycles.
type Refresher struct {
	contract     ContractReader
	fetch        LogFetcher
	participants ParticipantBuilder
	aggregator   *stats.Aggregator
	timestamps   func(ctx context.Context, block uint64) (int64, error)

	snapshots   storage.SnapshotStore
	records     storage.ParticipantStore
	archive     storage.EventArchive   // optional
	checkpoints storage.CheckpointStore // optional
	statsCache  *cache.Cache

	startBlock int64
	logger     *zap.Logger
	now        func() time.Time

	// refreshMu serializes cycles; statusMu guards the small fields.
	refreshMu sync.Mutex
	statusMu  sync.RWMutex
	status    Status
	lastErr   error
	lastTime  time.Time

	subMu sync.Mutex
	subs  map[chan domain.AggregateStats]struct{}
}

type Options struct {
	Contract     ContractReader
	Fetcher      LogFetcher
	Participants ParticipantBuilder
	Aggregator   *stats.Aggregator
	Timestamps   func(ctx context.Context, block uint64) (int64, error)

	Snapshots   storage.SnapshotStore
	Records     storage.ParticipantStore
	Archive     storage.EventArchive
	Checkpoints storage.CheckpointStore
	Cache       *cache.Cache

	StartBlock int64
	Logger     *zap.Logger
	Now        func() time.Time
}

func New(opts Options) *Refresher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	agg := opts.Aggregator
	if agg == nil {
		agg = stats.New(stats.Options{Logger: logger})
	}
	return &Refresher{
		contract:     opts.Contract,
		fetch:        opts.Fetcher,
		participants: opts.Participants,
		aggregator:   agg,
		timestamps:   opts.Timestamps,
		snapshots:    opts.Snapshots,
		records:      opts.Records,
		archive:      opts.Archive,
		checkpoints:  opts.Checkpoints,
		statsCache:   opts.Cache,
		startBlock:   opts.StartBlock,
		logger:       logger,
		now:          now,
		status:       StatusIdle,
		subs:         make(map[chan domain.AggregateStats]struct{}),
	}
}

// Status returns the current lifecycle state.
func (r *Refresher) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// LastError returns the error from the most recent failed refresh, or
// nil after a success.
func (r *Refresher) LastError() error {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.lastErr
}

// Stats serves the aggregate snapshot cache-first. force skips the
// cache and runs a full refresh. A cache miss also refreshes, and the
// fresh snapshot is written back under the requested wallet key so the
// next wallet-scoped read hits. The refresh cycle itself only
// maintains the unscoped key.
func (r *Refresher) Stats(ctx context.Context, wallet string, force bool) (*domain.AggregateStats, error) {
	if !force && r.statsCache != nil {
		if cached, ok := r.statsCache.GetStats(ctx, wallet); ok {
			observability.RecordCacheRead("stats", true)
			return cached, nil
		}
		observability.RecordCacheRead("stats", false)
	}

	result, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if wallet != "" && r.statsCache != nil {
		if err := r.statsCache.SetStats(ctx, wallet, result); err != nil {
			r.logger.Warn("wallet cache write failed", zap.String("wallet", wallet), zap.Error(err))
		}
	}
	return result, nil
}

// Refresh runs one full cycle and returns the fresh snapshot. Cycles
// are serialized; a caller arriving mid-cycle waits its turn.
func (r *Refresher) Refresh(ctx context.Context) (*domain.AggregateStats, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	r.beginCycle()
	result, err := r.runCycle(ctx)
	if err != nil {
		r.endCycle(err)
		observability.DefaultMetrics.RefreshRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	r.endCycle(nil)
	observability.DefaultMetrics.RefreshRunsTotal.WithLabelValues("ok").Inc()
	observability.DefaultMetrics.LastSuccessfulRefresh.Set(float64(r.now().Unix()))
	observability.RecordSnapshot(result.ParticipantCount, result.TotalSold,
		result.TotalRaised, len(result.Alerts), result.LatestBlock)

	r.notify(*result)
	return result, nil
}

func (r *Refresher) runCycle(ctx context.Context) (*domain.AggregateStats, error) {
	var bundle *presale.ReadBundle
	if err := r.step(StepReadBundle, func() error {
		var err error
		bundle, err = r.contract.FetchBundle(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var fetched *fetcher.Result
	if err := r.step(StepFetchEvents, func() error {
		var err error
		fetched, err = r.fetch.FetchLatest(ctx, r.contract.Filters(), r.startBlock)
		return err
	}); err != nil {
		return nil, err
	}

	decoded, skipped := presale.DecodeLogs(fetched.Logs)
	if skipped > 0 {
		observability.RecordEventsSkipped(skipped)
		r.logger.Warn("undecodable logs skipped", zap.Int("count", skipped))
	}
	for _, ev := range decoded {
		observability.RecordEventDecoded(string(ev.Kind))
	}

	if r.archive != nil {
		// Archive failures degrade; the cycle continues on live data.
		if err := r.step(StepArchiveEvents, func() error {
			return r.archive.InsertBulk(ctx, decoded)
		}); err != nil {
			r.logger.Warn("event archive write failed", zap.Error(err))
		}
	}

	var events []domain.Event
	_ = r.step(StepDedup, func() error {
		events = dedup.Deduplicate(decoded)
		return nil
	})

	var records []domain.ParticipantRecord
	if err := r.step(StepBuildParticipants, func() error {
		var err error
		records, err = r.participants.Build(ctx, events, bundle.SaleDecimals, bundle.PayDecimals)
		return err
	}); err != nil {
		return nil, err
	}

	var result domain.AggregateStats
	_ = r.step(StepAggregate, func() error {
		result = r.aggregator.Build(stats.Input{
			Bundle:        bundle,
			Events:        events,
			Participants:  records,
			Timestamps:    r.timestampsFor(ctx),
			FailedWindows: fetched.FailedWindows,
			LatestBlock:   fetched.ToBlock,
		})
		return nil
	})

	if err := r.step(StepStoreSnapshot, func() error {
		return r.persist(ctx, &result, records, fetched)
	}); err != nil {
		// Persistence failures lose history, not the live snapshot.
		r.logger.Warn("snapshot persistence failed", zap.Error(err))
	}

	if r.statsCache != nil {
		if err := r.step(StepCacheSet, func() error {
			return r.statsCache.SetStats(ctx, "", &result)
		}); err != nil {
			r.logger.Warn("cache write failed", zap.Error(err))
		}
	}

	return &result, nil
}

// persist fans the completed cycle out to the durable stores.
func (r *Refresher) persist(ctx context.Context, result *domain.AggregateStats, records []domain.ParticipantRecord, fetched *fetcher.Result) error {
	if r.snapshots != nil {
		snap := &domain.Snapshot{TakenAt: r.now().UTC(), Stats: *result}
		if err := r.snapshots.Insert(ctx, snap); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}
	if r.records != nil {
		if err := r.records.ReplaceAll(ctx, records); err != nil {
			return fmt.Errorf("replace participants: %w", err)
		}
	}
	if r.checkpoints != nil && fetched.ToBlock > 0 {
		if err := r.checkpoints.SetCheckpoint(ctx, &storage.FetchCheckpoint{Block: fetched.ToBlock}); err != nil {
			return fmt.Errorf("set checkpoint: %w", err)
		}
	}
	return nil
}

// step runs one named stage with timing, metrics, and error wrapping.
func (r *Refresher) step(name Step, fn func() error) error {
	start := r.now()
	err := fn()
	elapsed := r.now().Sub(start).Seconds()
	observability.RecordRefreshStep(string(name), elapsed, err)

	if err != nil {
		r.logger.Error("refresh step failed",
			zap.String("step", string(name)),
			zap.Float64("seconds", elapsed),
			zap.Error(err))
		return &StepError{Step: name, Err: err}
	}
	r.logger.Debug("refresh step done",
		zap.String("step", string(name)),
		zap.Float64("seconds", elapsed))
	return nil
}

func (r *Refresher) timestampsFor(ctx context.Context) func(uint64) (int64, error) {
	if r.timestamps == nil {
		return nil
	}
	return func(block uint64) (int64, error) {
		return r.timestamps(ctx, block)
	}
}

func (r *Refresher) beginCycle() {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	if r.status == StatusIdle {
		r.status = StatusLoading
		return
	}
	r.status = StatusFetching
}

func (r *Refresher) endCycle(err error) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	r.lastErr = err
	if err != nil {
		r.status = StatusError
		return
	}
	r.status = StatusReady
	r.lastTime = r.now()
}

// Subscribe registers a listener for completed snapshots. The returned
// cancel func must be called to release the channel. Slow subscribers
// drop snapshots rather than block the cycle.
func (r *Refresher) Subscribe() (<-chan domain.AggregateStats, func()) {
	ch := make(chan domain.AggregateStats, 1)

	r.subMu.Lock()
	r.subs[ch] = struct{}{}
	r.subMu.Unlock()

	cancel := func() {
		r.subMu.Lock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
		r.subMu.Unlock()
	}
	return ch, cancel
}

func (r *Refresher) notify(result domain.AggregateStats) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- result:
		default:
		}
	}
}

// Run refreshes immediately and then on every tick until the context
// is cancelled. Individual cycle failures are logged and retried on
// the next tick.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = cache.DefaultTTL
	}

	if _, err := r.Refresh(ctx); err != nil {
		r.logger.Error("initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.Error("refresh failed", zap.Error(err))
			}
		}
	}
}
