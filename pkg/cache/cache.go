package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Key joins parts with ':'.
func Key(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}

// GetOrLoad returns the cached value under key, or calls load and stores its result.
// Cache errors other than a miss are ignored; load errors are returned and nothing is stored.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var v T
	if c != nil {
		if err := c.Get(ctx, key, &v); err == nil {
			return v, nil
		}
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		_ = c.Set(ctx, key, v, ttl)
	}
	return v, nil
}
