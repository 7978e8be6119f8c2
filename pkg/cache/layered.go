package cache

import (
	"context"
	"time"
)

// LayeredCache reads through a process-local L1 in front of Redis. Locks always go to Redis
// so they hold across replicas.
type LayeredCache struct {
	mem   *MemoryCache
	redis *RedisCache
	l1TTL time.Duration
}

// NewLayeredCache creates a layered cache with memory and Redis.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		mem:   NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		redis: redisCache,
		l1TTL: cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) l1Expiry(expiration time.Duration) time.Duration {
	if expiration <= 0 || expiration > lc.l1TTL {
		return lc.l1TTL
	}
	return expiration
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.redis.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, lc.l1Expiry(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.redis.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.redis.Delete(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.redis.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.redis.Unlock(ctx, key)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.redis.Close()
}
