package models

// Candle is one OHLC bar; Time is the aligned interval start in unix seconds.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// CandleUpdate is a live-feed candle event.
type CandleUpdate struct {
	Candle
	IsNewCandle bool `json:"isNewCandle"`
}

// Ticker is the 24h rolling summary of the asset.
type Ticker struct {
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"` // quote volume in billions
}

// FeedEvent carries exactly one of Candle or Ticker.
type FeedEvent struct {
	Candle *CandleUpdate `json:"candle,omitempty"`
	Ticker *Ticker       `json:"ticker,omitempty"`
}
