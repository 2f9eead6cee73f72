// Package cache persists the derived dashboard snapshot between
// refresh cycles so a restart or a second reader can serve instantly.
// Entries carry their own expiry timestamp; the backing store returns
// entries verbatim and the wrapper decides freshness, so a stale entry
// can still be served deliberately as a fallback.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"presale-dashboard/internal/domain"
)

// ErrMiss is returned by stores for an absent key.
var ErrMiss = errors.New("cache: miss")

// DefaultTTL mirrors the dashboard refresh cadence.
const DefaultTTL = 60 * time.Second

// Entry is one stored value with its absolute expiry.
type Entry struct {
	Data   json.RawMessage `json:"data"`
	Expiry int64           `json:"expiry"` // unix milliseconds
}

// Expired reports whether the entry is past its expiry at the given
// instant. An entry at exactly its expiry is expired.
func (e Entry) Expired(now time.Time) bool {
	return e.Expiry <= now.UnixMilli()
}

// Store is the pluggable backing for cache entries. Get returns the
// entry as stored without checking expiry.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// Keys used by the dashboard.
const (
	keyPrefix = "presale"
	statsKey  = keyPrefix + ":stats"
)

// StatsKey returns the cache key for the aggregate snapshot. A
// non-empty wallet scopes the key to that viewer's derived extras.
func StatsKey(wallet string) string {
	if wallet == "" {
		return statsKey
	}
	return statsKey + ":" + wallet
}

// Cache wraps a Store with TTL bookkeeping and JSON codec concerns.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

type Options struct {
	Store  Store
	TTL    time.Duration
	Logger *zap.Logger
	Now    func() time.Time
}

func New(opts Options) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{store: opts.Store, ttl: ttl, logger: logger, now: now}
}

// GetStats returns the cached snapshot if present, fresh, and
// decodable. A corrupt entry is treated as a miss and evicted.
func (c *Cache) GetStats(ctx context.Context, wallet string) (*domain.AggregateStats, bool) {
	key := StatsKey(wallet)
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if entry.Expired(c.now()) {
		return nil, false
	}

	var stats domain.AggregateStats
	if err := json.Unmarshal(entry.Data, &stats); err != nil {
		c.logger.Warn("evicting corrupt cache entry", zap.String("key", key), zap.Error(err))
		if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache eviction failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &stats, true
}

// SetStats stores the snapshot with an expiry one TTL from now.
func (c *Cache) SetStats(ctx context.Context, wallet string, stats *domain.AggregateStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, StatsKey(wallet), Entry{
		Data:   data,
		Expiry: c.now().Add(c.ttl).UnixMilli(),
	})
}

// Invalidate drops the snapshot for a wallet scope.
func (c *Cache) Invalidate(ctx context.Context, wallet string) error {
	err := c.store.Delete(ctx, StatsKey(wallet))
	if errors.Is(err, ErrMiss) {
		return nil
	}
	return err
}
