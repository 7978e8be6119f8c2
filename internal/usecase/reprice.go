package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	"SignalPull/pkg/logger"
)

// Repricer retries the historical lookup for signals that were saved with the fallback price.
type Repricer struct {
	signals drepo.SignalStore
	prices  dservice.PriceSource
	lgr     *logger.Logger
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRepricer(signals drepo.SignalStore, prices dservice.PriceSource, lgr *logger.Logger) *Repricer {
	return &Repricer{signals: signals, prices: prices, lgr: lgr, delay: 100 * time.Millisecond, sleep: sleepCtx}
}

// Run walks every fallback-priced signal. Signals still without a historical price are left
// unchanged and are not failures.
func (r *Repricer) Run(ctx context.Context) (*models.RepriceSummary, error) {
	list, err := r.signals.ListByPriceSource(ctx, models.PriceFallback)
	if err != nil {
		return nil, fmt.Errorf("list fallback signals: %w", err)
	}
	sum := &models.RepriceSummary{Total: len(list)}
	for i, s := range list {
		if i > 0 {
			if err := r.sleep(ctx, r.delay); err != nil {
				return sum, err
			}
		}
		price, ok, err := r.prices.HistoricalPrice(ctx, s.SignalTimestamp)
		if err != nil {
			sum.Failed++
			r.lgr.Warn("reprice lookup failed", logger.String("id", s.ID), logger.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if err := r.signals.UpdateEntryPrice(ctx, s.ID, price, models.PriceHistorical); err != nil {
			sum.Failed++
			r.lgr.Warn("reprice update failed", logger.String("id", s.ID), logger.Error(err))
			continue
		}
		sum.Updated++
	}
	r.lgr.Info("reprice finished",
		logger.Int("total", sum.Total),
		logger.Int("updated", sum.Updated),
		logger.Int("failed", sum.Failed))
	return sum, nil
}
