// Package cache decorates snapshot sources with a Redis read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"StockAdviser/internal/model"
)

// Cache defaults used when NewCachingSnapshotSource gets zero values.
const (
	DefaultTTL       = 15 * time.Minute
	DefaultNamespace = "snapshots"
)

// SnapshotSource matches advisor.SnapshotSource.
type SnapshotSource interface {
	Snapshot(ctx context.Context, symbol string) (*model.StockSnapshot, bool, error)
}

// CachingSnapshotSource serves snapshots from Redis, falling back to the
// wrapped source on a miss or a Redis error.
type CachingSnapshotSource struct {
	inner     SnapshotSource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	log       *zap.SugaredLogger
}

// NewCachingSnapshotSource wraps inner with Redis. A nil rdb disables caching;
// ttl <= 0 falls back to DefaultTTL and an empty namespace to DefaultNamespace.
func NewCachingSnapshotSource(rdb *redis.Client, ttl time.Duration, inner SnapshotSource, namespace string, log *zap.SugaredLogger) *CachingSnapshotSource {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CachingSnapshotSource{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace, log: log}
}

// Snapshot serves a cached snapshot when present, otherwise asks inner and
// caches what it returns. Absent snapshots are not cached.
func (c *CachingSnapshotSource) Snapshot(ctx context.Context, symbol string) (*model.StockSnapshot, bool, error) {
	if c.rdb == nil {
		return c.inner.Snapshot(ctx, symbol)
	}

	key := c.cacheKey(symbol)
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var snap model.StockSnapshot
		if err := json.Unmarshal(b, &snap); err == nil {
			return &snap, true, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	snap, ok, err := c.inner.Snapshot(ctx, symbol)
	if err != nil || !ok || snap == nil {
		return snap, ok, err
	}

	if b, err := json.Marshal(snap); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Debugw("cache snapshot failed", "symbol", symbol, "error", err)
		}
	}
	return snap, true, nil
}

// Invalidate drops the cached snapshot for symbol.
func (c *CachingSnapshotSource) Invalidate(ctx context.Context, symbol string) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, c.cacheKey(symbol)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", symbol, err)
	}
	return nil
}

func (c *CachingSnapshotSource) cacheKey(symbol string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(symbol))
}

func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
