// Package redis keeps encoded posting lists in Redis through go-redis/v9.
// A missing key is reported as a miss, never as an error.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
)

const (
	dialTimeout = 5 * time.Second
	// scanBatch is both the SCAN COUNT hint and the UNLINK batch size.
	scanBatch = 100
)

// PostingStore reads and writes posting-list blobs by key.
type PostingStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// Open connects to cfg.Addr and fails if the server does not answer PING
// within five seconds.
func Open(ctx context.Context, cfg config.RedisConfig) (*PostingStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dialTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &PostingStore{
		rdb:    rdb,
		logger: slog.Default().With("component", "redis", "addr", cfg.Addr),
	}, nil
}

// GetPostings returns the blob stored under key. found is false with a nil
// error when the key does not exist or has expired.
func (s *PostingStore) GetPostings(ctx context.Context, key string) (data []byte, found bool, err error) {
	data, err = s.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("reading postings %s: %w", key, err)
	}
	return data, true, nil
}

// SetPostings stores data under key for ttl. A zero ttl keeps the key until
// it is deleted.
func (s *PostingStore) SetPostings(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing postings %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix removes every key starting with prefix and returns how many
// were removed. Keys are unlinked in batches as the keyspace is scanned.
func (s *PostingStore) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Unlink(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}

	iter := s.rdb.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("unlinking %s*: %w", prefix, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning %s*: %w", prefix, err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("unlinking %s*: %w", prefix, err)
	}
	s.logger.Debug("keys unlinked", "prefix", prefix, "count", deleted)
	return deleted, nil
}

func (s *PostingStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *PostingStore) Close() error {
	return s.rdb.Close()
}
