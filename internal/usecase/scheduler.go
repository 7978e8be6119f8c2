package usecase

import (
	"context"
	"sync"
	"time"

	"SignalPull/internal/domain/models"
	"SignalPull/pkg/cache"
	"SignalPull/pkg/logger"
)

// RunLockKey guards against two instances collecting at once.
const RunLockKey = "collector:run"

// Runner is what the scheduler triggers.
type Runner interface {
	Run(ctx context.Context, params models.RunParams) (*models.RunSummary, error)
}

// Scheduler runs the pipeline in recent mode every interval.
type Scheduler struct {
	runner   Runner
	locker   cache.Service
	interval time.Duration
	lockTTL  time.Duration
	lgr      *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler; locker may be nil for a single instance.
func NewScheduler(runner Runner, locker cache.Service, interval, lockTTL time.Duration, lgr *logger.Logger) *Scheduler {
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &Scheduler{runner: runner, locker: locker, interval: interval, lockTTL: lockTTL, lgr: lgr}
}

// Start launches the loop; an interval <= 0 disables scheduling.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.lgr.Info("collector schedule disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Tick(ctx)
			}
		}
	}()
	s.lgr.Info("collector scheduled", logger.Duration("interval_ms", s.interval))
}

// Tick performs one guarded run. It reports whether the run happened.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, RunLockKey, s.lockTTL)
		if err != nil {
			s.lgr.Error("collector lock failed", logger.Error(err))
			return false
		}
		if !ok {
			s.lgr.Info("collector run skipped, lock held elsewhere")
			return false
		}
		defer func() { _ = s.locker.Unlock(context.Background(), RunLockKey) }()
	}

	summary, err := s.runner.Run(ctx, models.RunParams{})
	if err != nil {
		s.lgr.Error("scheduled collection failed", logger.Error(err))
		return true
	}
	s.lgr.Info("scheduled collection done",
		logger.Int("saved", summary.Saved),
		logger.Int("processed", summary.Processed))
	return true
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
