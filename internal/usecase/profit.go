package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
)

// ProfitPercent is the move from entry to current in the signal's direction.
func ProfitPercent(sentiment models.Sentiment, entry, current float64) float64 {
	if entry <= 0 {
		return 0
	}
	p := (current - entry) / entry * 100
	if sentiment == models.SentimentShort {
		p = -p
	}
	return p
}

const (
	ModeRealtime = "realtime"
	ModeHybrid   = "hybrid"
)

// Performance computes per-signal profit against the current price.
type Performance struct {
	signals drepo.SignalStore
	prices  dservice.PriceSource
	now     func() time.Time
}

func NewPerformance(signals drepo.SignalStore, prices dservice.PriceSource) *Performance {
	return &Performance{signals: signals, prices: prices, now: time.Now}
}

// List returns performance for signals in [from, to]. No profit snapshot is stored, so
// hybrid and realtime both price against the current price.
func (p *Performance) List(ctx context.Context, from, to time.Time, limit int, mode string) ([]models.SignalPerformance, error) {
	if mode == "" {
		mode = ModeRealtime
	}
	if mode != ModeRealtime && mode != ModeHybrid {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	list, err := p.signals.List(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []models.SignalPerformance{}, nil
	}
	current, err := p.prices.CurrentPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("current price: %w", err)
	}

	y, m, d := p.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	out := make([]models.SignalPerformance, 0, len(list))
	for _, s := range list {
		out = append(out, models.SignalPerformance{
			SignalID:      s.ID,
			Sentiment:     s.Sentiment,
			EntryPrice:    s.EntryPrice,
			CurrentPrice:  current,
			ProfitPercent: ProfitPercent(s.Sentiment, s.EntryPrice, current),
			IsToday:       s.SignalTimestamp >= today,
		})
	}
	return out, nil
}
