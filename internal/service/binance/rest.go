// Package binance provides BTC market data: REST candles, ticker, historical prices
// (with a CoinGecko fallback) and the kline/ticker WebSocket feed.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	xhttp "SignalPull/pkg/http"
)

const (
	defaultRESTURL      = "https://api.binance.com"
	defaultCoinGeckoURL = "https://api.coingecko.com"
	defaultSymbol       = "BTCUSDT"
	maxKlineLimit       = 1000
)

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the Binance REST base URL.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }

// WithCoinGeckoURL overrides the CoinGecko base URL.
func WithCoinGeckoURL(u string) Option {
	return func(c *Client) { c.coinGeckoURL = strings.TrimRight(u, "/") }
}

// WithSymbol sets the traded pair.
func WithSymbol(s string) Option { return func(c *Client) { c.symbol = strings.ToUpper(s) } }

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithClock replaces time.Now for start-limit computation.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// Client implements PriceSource and MarketData over the public REST API.
type Client struct {
	baseURL      string
	coinGeckoURL string
	symbol       string
	timeout      time.Duration
	now          func() time.Time
	http         *xhttp.Client
}

var (
	_ dservice.PriceSource = (*Client)(nil)
	_ dservice.MarketData  = (*Client)(nil)
)

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:      defaultRESTURL,
		coinGeckoURL: defaultCoinGeckoURL,
		symbol:       defaultSymbol,
		timeout:      10 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout))
	return c
}

// StartLimit returns the earliest candle time (unix seconds) loaded for tf.
func StartLimit(tf drepo.Timeframe, now time.Time) int64 {
	switch tf {
	case drepo.TF1h:
		return now.Add(-90 * 24 * time.Hour).Unix()
	case drepo.TF4h:
		return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	default:
		return time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	}
}

// Candles pages backwards through klines until the start limit of tf is reached.
func (c *Client) Candles(ctx context.Context, tf drepo.Timeframe) ([]models.Candle, error) {
	startLimit := StartLimit(tf, c.now())
	var all []models.Candle
	var endTime int64 // ms, 0 = latest

	for {
		page, err := c.klines(ctx, string(tf), 0, endTime, maxKlineLimit)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		oldest := page[0].Time
		if oldest <= startLimit || len(page) < maxKlineLimit {
			break
		}
		endTime = oldest*1000 - 1
	}

	out := DedupAndSort(all)
	i := sort.Search(len(out), func(i int) bool { return out[i].Time >= startLimit })
	return out[i:], nil
}

// DedupAndSort keeps the last candle per time and orders ascending.
func DedupAndSort(candles []models.Candle) []models.Candle {
	seen := make(map[int64]models.Candle, len(candles))
	for _, c := range candles {
		seen[c.Time] = c
	}
	out := make([]models.Candle, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

func (c *Client) klines(ctx context.Context, interval string, startMs, endMs int64, limit int) ([]models.Candle, error) {
	q := map[string][]string{
		"symbol":   {c.symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	if startMs > 0 {
		q["startTime"] = []string{strconv.FormatInt(startMs, 10)}
	}
	if endMs > 0 {
		q["endTime"] = []string{strconv.FormatInt(endMs, 10)}
	}
	var raw [][]json.RawMessage
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/api/v3/klines",
		QueryParams: q,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	out := make([]models.Candle, 0, len(raw))
	for _, k := range raw {
		cd, err := parseKline(k)
		if err != nil {
			return nil, err
		}
		out = append(out, cd)
	}
	return out, nil
}

// parseKline reads [openTimeMs, "open", "high", "low", "close", ...].
func parseKline(k []json.RawMessage) (models.Candle, error) {
	if len(k) < 5 {
		return models.Candle{}, fmt.Errorf("binance kline: short row (%d fields)", len(k))
	}
	var openMs int64
	if err := json.Unmarshal(k[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("binance kline time: %w", err)
	}
	vals := make([]float64, 4)
	for i := range vals {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("binance kline field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("binance kline field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return models.Candle{Time: openMs / 1000, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}, nil
}

type ticker24h struct {
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
}

// Ticker returns the 24h ticker with quote volume in billions.
func (c *Client) Ticker(ctx context.Context) (*models.Ticker, error) {
	var t ticker24h
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/api/v3/ticker/24hr",
		QueryParams: map[string][]string{"symbol": {c.symbol}},
	}, &t)
	if err != nil {
		return nil, fmt.Errorf("binance ticker: %w", err)
	}
	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("binance ticker price: %w", err)
	}
	change, _ := strconv.ParseFloat(t.PriceChangePercent, 64)
	vol, _ := strconv.ParseFloat(t.QuoteVolume, 64)
	return &models.Ticker{Price: price, ChangePercent: change, Volume: vol / 1e9}, nil
}

// CurrentPrice is the last traded price.
func (c *Client) CurrentPrice(ctx context.Context) (float64, error) {
	t, err := c.Ticker(ctx)
	if err != nil {
		return 0, err
	}
	return t.Price, nil
}

// HistoricalPrice returns the rounded close of the 1m kline starting at ts, falling back to
// the closest CoinGecko sample within ±5 minutes. ok=false means both sources had nothing.
func (c *Client) HistoricalPrice(ctx context.Context, ts int64) (float64, bool, error) {
	page, err := c.klines(ctx, "1m", ts*1000, 0, 1)
	if err == nil && len(page) > 0 {
		return math.Round(page[0].Close), true, nil
	}
	price, ok, cgErr := c.coinGeckoPrice(ctx, ts)
	if cgErr != nil {
		if err != nil {
			return 0, false, fmt.Errorf("%v; %w", err, cgErr)
		}
		return 0, false, cgErr
	}
	return price, ok, nil
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

func (c *Client) coinGeckoPrice(ctx context.Context, ts int64) (float64, bool, error) {
	var mc marketChart
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.coinGeckoURL + "/api/v3/coins/bitcoin/market_chart/range",
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"from":        {strconv.FormatInt(ts-300, 10)},
			"to":          {strconv.FormatInt(ts+300, 10)},
		},
	}, &mc)
	if err != nil {
		return 0, false, fmt.Errorf("coingecko range: %w", err)
	}
	if len(mc.Prices) == 0 {
		return 0, false, nil
	}
	target := float64(ts * 1000)
	best := mc.Prices[0]
	for _, p := range mc.Prices[1:] {
		if math.Abs(p[0]-target) < math.Abs(best[0]-target) {
			best = p
		}
	}
	return math.Round(best[1]), true, nil
}
