package binance

import (
	"context"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	"SignalPull/pkg/cache"
)

// Cached fronts Client with a cache: historical prices per minute, candles and
// ticker for a short TTL. A nil cache disables caching.
type Cached struct {
	*Client
	cache     cache.Service
	candleTTL time.Duration
	tickerTTL time.Duration
	priceTTL  time.Duration
}

var (
	_ dservice.PriceSource = (*Cached)(nil)
	_ dservice.MarketData  = (*Cached)(nil)
)

func NewCached(c *Client, cs cache.Service, candleTTL time.Duration) *Cached {
	if candleTTL <= 0 {
		candleTTL = time.Minute
	}
	return &Cached{
		Client:    c,
		cache:     cs,
		candleTTL: candleTTL,
		tickerTTL: 5 * time.Second,
		priceTTL:  24 * time.Hour,
	}
}

func (c *Cached) Candles(ctx context.Context, tf drepo.Timeframe) ([]models.Candle, error) {
	return cache.GetOrLoad(ctx, c.cache, cache.Key("candles", c.symbol, tf), c.candleTTL,
		func(ctx context.Context) ([]models.Candle, error) { return c.Client.Candles(ctx, tf) })
}

func (c *Cached) Ticker(ctx context.Context) (*models.Ticker, error) {
	return cache.GetOrLoad(ctx, c.cache, cache.Key("ticker", c.symbol), c.tickerTTL, c.Client.Ticker)
}

func (c *Cached) CurrentPrice(ctx context.Context) (float64, error) {
	t, err := c.Ticker(ctx)
	if err != nil {
		return 0, err
	}
	return t.Price, nil
}

type cachedPrice struct {
	Price float64 `json:"price"`
	OK    bool    `json:"ok"`
}

// HistoricalPrice caches by minute bucket; misses are not cached.
func (c *Cached) HistoricalPrice(ctx context.Context, ts int64) (float64, bool, error) {
	minute := ts - ts%60
	key := cache.Key("price", c.symbol, minute)
	if c.cache != nil {
		var cp cachedPrice
		if err := c.cache.Get(ctx, key, &cp); err == nil && cp.OK {
			return cp.Price, true, nil
		}
	}
	price, ok, err := c.Client.HistoricalPrice(ctx, ts)
	if err != nil || !ok {
		return price, ok, err
	}
	if c.cache != nil {
		_ = c.cache.Set(ctx, key, cachedPrice{Price: price, OK: true}, c.priceTTL)
	}
	return price, true, nil
}
