package usecase

import (
	"context"
	"testing"
	"time"

	"SignalPull/internal/domain/models"
	"SignalPull/pkg/cache"
	"SignalPull/pkg/logger"
)

type countingRunner struct {
	runs   int
	params []models.RunParams
}

func (c *countingRunner) Run(_ context.Context, p models.RunParams) (*models.RunSummary, error) {
	c.runs++
	c.params = append(c.params, p)
	return &models.RunSummary{}, nil
}

func TestSchedulerTickRespectsLock(t *testing.T) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	runner := &countingRunner{}
	s := NewScheduler(runner, mc, time.Hour, time.Minute, logger.Nop())
	ctx := context.Background()

	if !s.Tick(ctx) || runner.runs != 1 {
		t.Fatalf("first tick should run, runs=%d", runner.runs)
	}
	if runner.params[0].IsBackfill() {
		t.Fatal("scheduled runs use the recent window")
	}

	held, _ := mc.TryLock(ctx, RunLockKey, time.Minute)
	if !held {
		t.Fatal("lock should be released after a tick")
	}
	if s.Tick(ctx) || runner.runs != 1 {
		t.Fatalf("tick must skip while another instance holds the lock, runs=%d", runner.runs)
	}
}

func TestSchedulerWithoutLocker(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, nil, 0, 0, logger.Nop())
	s.Start(context.Background())
	s.Stop()
	if !s.Tick(context.Background()) || runner.runs != 1 {
		t.Fatalf("runs = %d", runner.runs)
	}
}
