// Package cache memoises mining results in Redis. Results are msgpack-encoded
// under a hash of the canonical request, concurrent identical requests share
// one computation, and a circuit breaker keeps a failing Redis off the hot
// path.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/resilience"
)

const keyPrefix = "topk:"

// Store is the subset of the Redis client the cache needs. A missing key
// must yield an error for which pkgredis.IsNilError reports true.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultCache caches mining results.
type ResultCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over store. m may be nil.
func New(store Store, cfg config.RedisConfig, m *metrics.Metrics) *ResultCache {
	c := &ResultCache{
		store:   store,
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  logger.WithComponent("result-cache"),
	}
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
	if m != nil {
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", cbCfg)
	return c
}

// Get returns the cached result for key. Store failures and decoding errors
// count as misses.
func (c *ResultCache) Get(ctx context.Context, key string) (*mining.Result, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		b, err := c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	var result mining.Result
	if err := msgpack.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

// Set stores result under key.
func (c *ResultCache) Set(ctx context.Context, key string, result *mining.Result) {
	data, err := msgpack.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key or computes, stores and
// returns it. The boolean reports a cache hit. Failed computations are not
// cached.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() (*mining.Result, error),
) (*mining.Result, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*mining.Result), false, nil
}

// Invalidate deletes every cached result.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counts since start.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the state of the Redis circuit breaker.
func (c *ResultCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *ResultCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Key hashes a canonical form of a request: the strategy, K, the density
// threshold when the strategy uses it, and every transaction with its items
// sorted. Map iteration order therefore never changes the key.
func Key(strategy mining.Strategy, k int, densityThreshold float64, db []itemset.Transaction) string {
	if strategy != mining.Hybrid {
		densityThreshold = 0
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|k=%d|d=%s\n", strategy, k, strconv.FormatFloat(densityThreshold, 'g', -1, 64))
	for _, t := range db {
		for _, item := range t.Items() {
			fmt.Fprintf(h, "%d:%s=%s;", len(item), item, strconv.FormatFloat(t[item], 'g', -1, 64))
		}
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%s%x", keyPrefix, h.Sum(nil)[:16])
}
