package models

import "time"

// Sentiment is the directional call of a post.
type Sentiment string

const (
	SentimentLong    Sentiment = "LONG"
	SentimentShort   Sentiment = "SHORT"
	SentimentNeutral Sentiment = "NEUTRAL"
	// SentimentMixed is only produced for clusters without a strict majority.
	SentimentMixed Sentiment = "MIXED"
)

// IsDirectional reports whether s can be persisted as a Signal.
func (s Sentiment) IsDirectional() bool {
	return s == SentimentLong || s == SentimentShort
}

// PriceSource tells whether entry_price came from a historical lookup or the run-time fallback.
type PriceSource string

const (
	PriceHistorical PriceSource = "historical"
	PriceFallback   PriceSource = "fallback"
)

// Signal is a persisted directional call of one influencer, unique per SourceURL.
type Signal struct {
	ID              string      `db:"id" json:"id"`
	InfluencerID    string      `db:"influencer_id" json:"influencer_id"`
	Sentiment       Sentiment   `db:"sentiment" json:"sentiment"`
	Confidence      int         `db:"confidence" json:"confidence"`
	EntryPrice      float64     `db:"entry_price" json:"entry_price"`
	PriceSource     PriceSource `db:"price_source" json:"price_source"`
	SignalTimestamp int64       `db:"signal_timestamp" json:"signal_timestamp"`
	SourceURL       string      `db:"source_url" json:"source_url"`
	OriginalText    string      `db:"original_text" json:"original_text"`
	Summary         string      `db:"summary" json:"summary"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// SignalView is a Signal joined with its influencer, as served to the chart.
type SignalView struct {
	Signal
	TwitterHandle   string `db:"twitter_handle" json:"twitter_handle"`
	DisplayName     string `db:"display_name" json:"display_name"`
	ProfileImageURL string `db:"profile_image_url" json:"profile_image_url,omitempty"`
}

// SignalEvent is published after a signal has been saved.
type SignalEvent struct {
	SignalID        string      `json:"signal_id"`
	InfluencerID    string      `json:"influencer_id"`
	Handle          string      `json:"handle"`
	Sentiment       Sentiment   `json:"sentiment"`
	Confidence      int         `json:"confidence"`
	EntryPrice      float64     `json:"entry_price"`
	PriceSource     PriceSource `json:"price_source"`
	SignalTimestamp int64       `json:"signal_timestamp"`
	SourceURL       string      `json:"source_url"`
	SavedAt         int64       `json:"saved_at"`
}
