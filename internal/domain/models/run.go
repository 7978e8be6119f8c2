package models

import "time"

// RunParams selects between the recent window and a backfill range.
type RunParams struct {
	Since          string // YYYY-MM-DD, empty for the recent window
	Until          string
	LimitPerAuthor int
	AuthorGroup    string
}

// IsBackfill reports whether the run covers an explicit historical range.
func (p RunParams) IsBackfill() bool { return p.Since != "" && p.Until != "" }

// RunSummary is the operational result of one collection run.
type RunSummary struct {
	Processed                  int      `json:"processed"`
	Saved                      int      `json:"saved"`
	SkippedURLDuplicate        int      `json:"skippedUrlDuplicate"`
	SkippedSamePersonDuplicate int      `json:"skippedSamePersonDuplicate"`
	SkippedNeutral             int      `json:"skippedNeutral"`
	SkippedLowConfidence       int      `json:"skippedLowConfidence"`
	Errors                     []string `json:"errors"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// RepriceSummary is the result of re-resolving fallback entry prices.
type RepriceSummary struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// SignalPerformance is the profit of a signal against the current price.
type SignalPerformance struct {
	SignalID      string    `json:"signal_id"`
	Sentiment     Sentiment `json:"sentiment"`
	EntryPrice    float64   `json:"entry_price"`
	CurrentPrice  float64   `json:"current_price"`
	ProfitPercent float64   `json:"profit_percent"`
	IsToday       bool      `json:"is_today"`
}

// SentimentStat is one day/sentiment bucket of archived signals.
type SentimentStat struct {
	Day           string    `json:"day"`
	Sentiment     Sentiment `json:"sentiment"`
	Count         int       `json:"count"`
	AvgConfidence float64   `json:"avg_confidence"`
}
