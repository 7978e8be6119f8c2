// Package ratelimit keeps per-key token buckets.
package ratelimit

import (
	"sync"
	"time"

	xhttp "SignalPull/pkg/http"

	"github.com/labstack/echo/v4"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a token bucket per key with a shared capacity and refill rate.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*bucket
	capacity float64
	refill   float64 // tokens per second
	now      func() time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{m: make(map[string]*bucket), capacity: capacity, refill: refillPerSec, now: time.Now}
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Middleware rejects requests beyond the per-client-IP budget with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
