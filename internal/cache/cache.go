// Package cache provides the two-tier (Redis L1, in-process LRU L2)
// cache for parsed addresses, keyed by a fingerprint of the raw
// address text so repeated submissions of the same string skip the
// parser entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
)

// ParsedCache is the caching contract the pipeline depends on; the
// hybrid implementation below, or a stub, can satisfy it in tests.
type ParsedCache interface {
	Get(ctx context.Context, rawAddress string) (*model.ParsedAddress, bool, error)
	Set(ctx context.Context, rawAddress string, parsed *model.ParsedAddress) error
	Clear(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stats mirrors the hit/miss counters the teacher's cache services
// expose for observability.
type Stats struct {
	L1Hits   int64 `json:"l1_hits"`
	L1Misses int64 `json:"l1_misses"`
	L2Hits   int64 `json:"l2_hits"`
	L2Misses int64 `json:"l2_misses"`
}

// Fingerprint hashes raw address text into the cache key.
func Fingerprint(rawAddress string) string {
	sum := sha256.Sum256([]byte(rawAddress))
	return hex.EncodeToString(sum[:])
}

const keyPrefix = "addr_audit:parsed:"
const defaultTTL = 24 * time.Hour

// LRUCache is the in-process L2: an LRU of a bounded size, used as the
// fallback when Redis is unavailable or simply not configured.
type LRUCache struct {
	cache  *lru.Cache[string, *model.ParsedAddress]
	logger *zap.Logger
	hits   int64
	misses int64
}

func NewLRUCache(size int, logger *zap.Logger) (*LRUCache, error) {
	c, err := lru.New[string, *model.ParsedAddress](size)
	if err != nil {
		return nil, fmt.Errorf("cache: new lru: %w", err)
	}
	return &LRUCache{cache: c, logger: logger}, nil
}

func (c *LRUCache) Get(ctx context.Context, rawAddress string) (*model.ParsedAddress, bool, error) {
	p, ok := c.cache.Get(Fingerprint(rawAddress))
	if ok {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	return p, ok, nil
}

func (c *LRUCache) Set(ctx context.Context, rawAddress string, parsed *model.ParsedAddress) error {
	c.cache.Add(Fingerprint(rawAddress), parsed)
	return nil
}

func (c *LRUCache) Stats() Stats {
	return Stats{L1Hits: atomic.LoadInt64(&c.hits), L1Misses: atomic.LoadInt64(&c.misses)}
}

func (c *LRUCache) Clear(ctx context.Context) error {
	c.cache.Purge()
	return nil
}

func (c *LRUCache) Close() error { return nil }

// RedisCache is the L1: a Redis-backed cache with a TTL, matching the
// teacher's RedisCacheService in shape (key prefix, TTL, hit/miss
// counters) but storing ParsedAddress JSON instead of AddressResult.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
	hits   int64
	misses int64
}

func NewRedisCache(redisURL string, logger *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}

	return &RedisCache{client: client, logger: logger, ttl: defaultTTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, rawAddress string) (*model.ParsedAddress, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+Fingerprint(rawAddress)).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	var p model.ParsedAddress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("cache: decode redis value: %w", err)
	}
	atomic.AddInt64(&c.hits, 1)
	return &p, true, nil
}

func (c *RedisCache) Set(ctx context.Context, rawAddress string, parsed *model.ParsedAddress) error {
	raw, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("cache: encode value: %w", err)
	}
	return c.client.Set(ctx, keyPrefix+Fingerprint(rawAddress), raw, c.ttl).Err()
}

func (c *RedisCache) Stats() Stats {
	return Stats{L1Hits: atomic.LoadInt64(&c.hits), L1Misses: atomic.LoadInt64(&c.misses)}
}

func (c *RedisCache) Clear(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("cache: scan keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

// HybridCache checks Redis first, falls back to the LRU on miss, and
// syncs an LRU hit back into Redis asynchronously — the same
// read-through/write-back shape as the teacher's HybridCacheService.
type HybridCache struct {
	l1     *RedisCache
	l2     *LRUCache
	logger *zap.Logger
}

func NewHybridCache(l1 *RedisCache, l2 *LRUCache, logger *zap.Logger) *HybridCache {
	return &HybridCache{l1: l1, l2: l2, logger: logger}
}

func (c *HybridCache) Get(ctx context.Context, rawAddress string) (*model.ParsedAddress, bool, error) {
	if p, ok, err := c.l1.Get(ctx, rawAddress); err == nil && ok {
		return p, true, nil
	} else if err != nil && c.logger != nil {
		c.logger.Warn("redis cache get failed, falling back to lru", zap.Error(err))
	}

	p, ok, err := c.l2.Get(ctx, rawAddress)
	if err != nil {
		return nil, false, err
	}
	if ok {
		go func() {
			syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.l1.Set(syncCtx, rawAddress, p); err != nil && c.logger != nil {
				c.logger.Debug("failed to sync lru hit back to redis", zap.Error(err))
			}
		}()
	}
	return p, ok, nil
}

func (c *HybridCache) Set(ctx context.Context, rawAddress string, parsed *model.ParsedAddress) error {
	if err := c.l2.Set(ctx, rawAddress, parsed); err != nil {
		return err
	}
	if err := c.l1.Set(ctx, rawAddress, parsed); err != nil && c.logger != nil {
		c.logger.Warn("failed to write through to redis", zap.Error(err))
	}
	return nil
}

func (c *HybridCache) Stats() Stats {
	l1 := c.l1.Stats()
	l2 := c.l2.Stats()
	return Stats{L1Hits: l1.L1Hits, L1Misses: l1.L1Misses, L2Hits: l2.L1Hits, L2Misses: l2.L1Misses}
}

func (c *HybridCache) Clear(ctx context.Context) error {
	c.l2.cache.Purge()
	return c.l1.Clear(ctx)
}

func (c *HybridCache) Close() error {
	if err := c.l1.Close(); err != nil {
		return err
	}
	return c.l2.Close()
}
