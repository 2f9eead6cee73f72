// Package fetcher issues bounded-range log queries across a block
// span in fixed-size windows. The fetch is best-effort: a failed
// window contributes zero events and a count, never an abort.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"presale-dashboard/internal/eth"
	"presale-dashboard/internal/observability"
	"presale-dashboard/internal/presale"
)

// DefaultWindowSize is used on the participant and detail paths.
// Callers covering coarse history may configure a larger window.
const DefaultWindowSize uint64 = 500

// Fetcher walks [start, latest] in windows and concatenates matching
// logs for a set of named event filters.
type Fetcher struct {
	client      eth.Client
	window      uint64
	deployBlock uint64
	logger      *zap.Logger
}

// Options configures a Fetcher.
type Options struct {
	Client eth.Client
	// WindowSize is the block span per query; 0 means DefaultWindowSize.
	WindowSize uint64
	// DeployBlock is the fallback start when the configured start
	// block is invalid.
	DeployBlock uint64
	Logger      *zap.Logger
}

// New creates a fetcher.
func New(opts Options) *Fetcher {
	window := opts.WindowSize
	if window == 0 {
		window = DefaultWindowSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:      opts.Client,
		window:      window,
		deployBlock: opts.DeployBlock,
		logger:      logger,
	}
}

// Result is the outcome of one ranged fetch. FailedWindows > 0 means
// the logs may under-report history; callers decide whether to warn.
type Result struct {
	Logs          []types.Log
	Windows       int
	FailedWindows int
	FromBlock     uint64
	ToBlock       uint64
}

// StartBlock validates a configured start block, falling back to the
// deployment block when it is negative.
func (f *Fetcher) StartBlock(configured int64) uint64 {
	if configured < 0 {
		f.logger.Warn("invalid start block, falling back to deployment block",
			zap.Int64("configured", configured),
			zap.Uint64("deploy_block", f.deployBlock))
		return f.deployBlock
	}
	return uint64(configured)
}

// FetchRange walks [start, latest] window by window for every filter,
// sequentially, and concatenates all matching logs. Windows for one
// filter run one at a time to bound outstanding RPC load. Context
// cancellation aborts; any other per-window error degrades to zero
// events for that window.
func (f *Fetcher) FetchRange(ctx context.Context, filters []presale.EventFilter, start, latest uint64) (*Result, error) {
	if start > latest {
		return nil, fmt.Errorf("start block %d beyond latest %d", start, latest)
	}

	result := &Result{FromBlock: start, ToBlock: latest}

	for _, filter := range filters {
		for from := start; from <= latest; from += f.window {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			to := from + f.window - 1
			if to > latest {
				to = latest
			}
			result.Windows++

			begin := time.Now()
			logs, err := f.client.FilterLogs(ctx, filter.Query(from, to))
			observability.RecordRPCCall("eth_getLogs", time.Since(begin).Seconds())
			if err != nil {
				result.FailedWindows++
				observability.RecordWindow(true)
				f.logger.Warn("window query failed, treating as empty",
					zap.String("filter", filter.Name),
					zap.Uint64("from", from),
					zap.Uint64("to", to),
					zap.Error(err))
				continue
			}

			observability.RecordWindow(false)
			result.Logs = append(result.Logs, logs...)
		}
	}

	return result, nil
}

// FetchLatest resolves the chain head and fetches from the validated
// start block up to it.
func (f *Fetcher) FetchLatest(ctx context.Context, filters []presale.EventFilter, configuredStart int64) (*Result, error) {
	latest, err := f.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	return f.FetchRange(ctx, filters, f.StartBlock(configuredStart), latest)
}
