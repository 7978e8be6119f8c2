package middleware

import (
	"errors"
	"sync"
	"time"

	"SignalPull/internal/domain/models"
	domrepo "SignalPull/internal/domain/repository"
)

// FeedGuard sits between the live feed and a chart session. It drops malformed events
// and coalesces bursts: within one interval only the latest candle and ticker are kept,
// and held events are released by Flush. A new-candle event is never held, and it
// releases the held final update of the previous candle first.
type FeedGuard struct {
	mu       sync.Mutex
	metrics  domrepo.Metrics
	interval time.Duration

	lastCandle time.Time
	lastTicker time.Time
	heldCandle *models.CandleUpdate
	heldTicker *models.Ticker
}

type GuardOption func(*FeedGuard)

// WithMaxRPS caps forwarded events per second per kind.
func WithMaxRPS(n int) GuardOption {
	return func(g *FeedGuard) {
		if n > 0 {
			g.interval = time.Second / time.Duration(n)
		}
	}
}

func NewFeedGuard(metrics domrepo.Metrics, opts ...GuardOption) *FeedGuard {
	g := &FeedGuard{metrics: metrics, interval: 250 * time.Millisecond}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit returns the events to apply now, in order.
func (g *FeedGuard) Admit(ev models.FeedEvent, now time.Time) []models.FeedEvent {
	if err := validateEvent(ev); err != nil {
		g.metrics.RecordError("feed_invalid")
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if ev.Candle != nil {
		c := *ev.Candle
		if c.IsNewCandle {
			var out []models.FeedEvent
			if g.heldCandle != nil && g.heldCandle.Time < c.Time {
				out = append(out, models.FeedEvent{Candle: g.heldCandle})
			}
			g.heldCandle = nil
			g.lastCandle = now
			return append(out, models.FeedEvent{Candle: &c})
		}
		if now.Sub(g.lastCandle) < g.interval {
			g.heldCandle = &c
			return nil
		}
		g.heldCandle = nil
		g.lastCandle = now
		return []models.FeedEvent{{Candle: &c}}
	}

	t := *ev.Ticker
	if now.Sub(g.lastTicker) < g.interval {
		g.heldTicker = &t
		return nil
	}
	g.heldTicker = nil
	g.lastTicker = now
	return []models.FeedEvent{{Ticker: &t}}
}

// Flush releases held events whose interval has passed.
func (g *FeedGuard) Flush(now time.Time) []models.FeedEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.FeedEvent
	if g.heldCandle != nil && now.Sub(g.lastCandle) >= g.interval {
		out = append(out, models.FeedEvent{Candle: g.heldCandle})
		g.heldCandle = nil
		g.lastCandle = now
	}
	if g.heldTicker != nil && now.Sub(g.lastTicker) >= g.interval {
		out = append(out, models.FeedEvent{Ticker: g.heldTicker})
		g.heldTicker = nil
		g.lastTicker = now
	}
	return out
}

// Interval is the coalescing window; callers flush at this cadence.
func (g *FeedGuard) Interval() time.Duration { return g.interval }

func validateEvent(ev models.FeedEvent) error {
	switch {
	case ev.Candle != nil && ev.Ticker != nil:
		return errors.New("event carries both candle and ticker")
	case ev.Candle != nil:
		c := ev.Candle
		if c.Time <= 0 {
			return errors.New("candle time invalid")
		}
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 || c.High < c.Low {
			return errors.New("candle prices invalid")
		}
		return nil
	case ev.Ticker != nil:
		if ev.Ticker.Price <= 0 || ev.Ticker.Volume < 0 {
			return errors.New("ticker invalid")
		}
		return nil
	default:
		return errors.New("empty event")
	}
}
