package eth

import (
	"context"
	"fmt"
	"math/big"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultTimestampCacheSize bounds the block-timestamp memo. Long
// aggregation sessions touch one header per distinct block with
// events; 4096 entries covers months of presale activity.
const DefaultTimestampCacheSize = 4096

// BlockTimestamps memoizes block number -> unix timestamp lookups
// behind a bounded LRU, so monthly bucketing does not re-fetch headers
// and the memo cannot grow without bound.
type BlockTimestamps struct {
	client Client
	cache  *lru.Cache[uint64, int64]
	logger *zap.Logger
}

// NewBlockTimestamps creates a timestamp cache with the given capacity.
// capacity <= 0 uses DefaultTimestampCacheSize.
func NewBlockTimestamps(client Client, capacity int, logger *zap.Logger) (*BlockTimestamps, error) {
	if capacity <= 0 {
		capacity = DefaultTimestampCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[uint64, int64](capacity)
	if err != nil {
		return nil, fmt.Errorf("create timestamp cache: %w", err)
	}
	return &BlockTimestamps{client: client, cache: cache, logger: logger}, nil
}

// At returns the unix timestamp of the given block, fetching the
// header on a cache miss.
func (b *BlockTimestamps) At(ctx context.Context, blockNumber uint64) (int64, error) {
	if ts, ok := b.cache.Get(blockNumber); ok {
		return ts, nil
	}

	header, err := b.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, fmt.Errorf("header for block %d: %w", blockNumber, err)
	}

	ts := int64(header.Time)
	b.cache.Add(blockNumber, ts)
	return ts, nil
}

// Len reports how many timestamps are currently memoized.
func (b *BlockTimestamps) Len() int {
	return b.cache.Len()
}
