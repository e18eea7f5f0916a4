// Package cache keeps ranked posting lists in Redis. Entries are keyed by the
// index fingerprint, so a rebuilt index with different content never reads
// postings cached for an older one. Snippets are never cached.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/resilience"
)

const keyPrefix = "termsearch:"

// Backend stores encoded posting lists. *redis.PostingStore implements it.
type Backend interface {
	GetPostings(ctx context.Context, key string) ([]byte, bool, error)
	SetPostings(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

type PostingCache struct {
	backend Backend
	breaker *resilience.Breaker
	ttl     time.Duration
	prefix  string
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache for the index identified by fingerprint. m may be nil.
// Backend calls go through a circuit breaker so a dead Redis costs one
// failed call per reset window rather than one per query.
func New(backend Backend, ttl time.Duration, fingerprint string, m *metrics.Metrics) *PostingCache {
	if len(fingerprint) > 16 {
		fingerprint = fingerprint[:16]
	}
	return &PostingCache{
		backend: backend,
		breaker: resilience.NewBreaker("redis-posting-cache", resilience.BreakerConfig{}),
		ttl:     ttl,
		prefix:  keyPrefix + fingerprint + ":",
		metrics: m,
		logger:  slog.Default().With("component", "posting-cache"),
	}
}

func (c *PostingCache) Get(ctx context.Context, term string) (index.PostingList, bool) {
	key := c.buildKey(term)
	var data []byte
	found := false
	err := c.breaker.Do(func() error {
		var getErr error
		data, found, getErr = c.backend.GetPostings(ctx, key)
		// A caller giving up is not a Redis failure.
		if getErr != nil && ctx.Err() != nil {
			found = false
			return nil
		}
		return getErr
	})
	if err != nil {
		c.logBackendError("cache get failed", key, err)
	}
	if !found {
		c.recordMiss()
		return nil, false
	}
	var postings index.PostingList
	if err := json.Unmarshal(data, &postings); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "term", term, "key", key)
	return postings, true
}

func (c *PostingCache) Set(ctx context.Context, term string, postings index.PostingList) {
	key := c.buildKey(term)
	data, err := json.Marshal(postings)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		if err := c.backend.SetPostings(ctx, key, data, c.ttl); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	if err != nil {
		c.logBackendError("cache set failed", key, err)
	}
}

// GetOrCompute returns the cached postings for term, or computes, stores and
// returns them. Concurrent misses for the same term share one computation.
// The boolean reports a cache hit.
func (c *PostingCache) GetOrCompute(
	ctx context.Context,
	term string,
	computeFn func() index.PostingList,
) (index.PostingList, bool) {
	if postings, ok := c.Get(ctx, term); ok {
		return postings, true
	}
	val, _, _ := c.group.Do(c.buildKey(term), func() (any, error) {
		postings := computeFn()
		c.Set(ctx, term, postings)
		return postings, nil
	})
	return val.(index.PostingList), false
}

// Invalidate deletes every termsearch entry, for all index fingerprints.
func (c *PostingCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.DeleteByPrefix(ctx, keyPrefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *PostingCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// CircuitState reports whether Redis calls are currently being attempted.
func (c *PostingCache) CircuitState() resilience.State {
	return c.breaker.State()
}

// HealthCheck reports the cache as degraded while its circuit is open.
// Queries keep working without the cache, so it never reports down.
func (c *PostingCache) HealthCheck() health.Check {
	return func(context.Context) health.ComponentHealth {
		if state := c.CircuitState(); state == resilience.StateOpen {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	}
}

func (c *PostingCache) logBackendError(msg, key string, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug(msg, "key", key, "error", err)
		return
	}
	c.logger.Error(msg, "key", key, "error", err)
}

func (c *PostingCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *PostingCache) buildKey(term string) string {
	hash := sha256.Sum256([]byte(term))
	return fmt.Sprintf("%s%x", c.prefix, hash[:16])
}
