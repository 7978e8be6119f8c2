package repository

import (
	"context"
	"errors"
	"time"

	"SignalPull/internal/domain/models"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// SignalStore persists signals keyed by source_url.
type SignalStore interface {
	ExistsByURL(ctx context.Context, sourceURL string) (bool, error)
	// SentimentsInWindow returns the sentiments an influencer posted within [from, to].
	SentimentsInWindow(ctx context.Context, influencerID string, from, to int64) ([]models.Sentiment, error)
	// Upsert inserts or fully updates the row with the same source_url and returns its id.
	Upsert(ctx context.Context, s *models.Signal) (string, error)
	Get(ctx context.Context, id string) (*models.Signal, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, from, to time.Time, limit int) ([]models.SignalView, error)
	ListByPriceSource(ctx context.Context, src models.PriceSource) ([]models.Signal, error)
	UpdateEntryPrice(ctx context.Context, id string, price float64, src models.PriceSource) error
	Health(ctx context.Context) error
}

// InfluencerStore resolves authors by handle.
type InfluencerStore interface {
	GetByHandle(ctx context.Context, handle string) (*models.Influencer, error)
	Create(ctx context.Context, in *models.Influencer) (string, error)
}

// SignalPublisher announces saved signals.
type SignalPublisher interface {
	PublishSaved(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

// SignalArchive stores the append-only history of saved-signal events.
type SignalArchive interface {
	Store(ctx context.Context, ev *models.SignalEvent) error
	Health(ctx context.Context) error
}

// JobQueue enqueues background jobs.
type JobQueue interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

type Metrics interface {
	RecordSignalSaved(sentiment string)
	RecordSkip(reason string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordFeedState(tf string, state string)
}
