package service

import (
	"context"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/domain/repository"
)

// FetchQuery describes one batch request to the post search provider.
type FetchQuery struct {
	SearchTerms []string
	MaxItems    int
	Sort        string // Latest | Top
}

// PostSource returns raw, provider-shaped items for a query.
type PostSource interface {
	Fetch(ctx context.Context, q FetchQuery) ([]map[string]interface{}, error)
}

// Classifier labels post text with a directional sentiment.
type Classifier interface {
	Classify(ctx context.Context, text string) (*models.Classification, error)
	Verify(ctx context.Context, text string, prior models.Sentiment) (*models.Verification, error)
}

// PriceSource resolves the asset price. HistoricalPrice returns ok=false when unavailable.
type PriceSource interface {
	CurrentPrice(ctx context.Context) (float64, error)
	HistoricalPrice(ctx context.Context, unixSeconds int64) (price float64, ok bool, err error)
}

// MarketData serves candle series and the 24h ticker.
type MarketData interface {
	Candles(ctx context.Context, tf repository.Timeframe) ([]models.Candle, error)
	Ticker(ctx context.Context) (*models.Ticker, error)
}

// LiveFeed is a push subscription for one timeframe.
type LiveFeed interface {
	Connect(ctx context.Context, tf repository.Timeframe) error
	Read(ctx context.Context) (<-chan models.FeedEvent, <-chan error)
	Close() error
}

// LiveFeedFactory creates a fresh subscription; a feed is never reused across timeframes.
type LiveFeedFactory func() LiveFeed
