package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalPull/pkg/logger"
)

// registry maps message types to jobs and runs them.
type registry struct {
	mu     sync.RWMutex
	jobs   map[string]Job
	logger *logger.Logger
}

func newRegistry(lgr *logger.Logger) *registry {
	return &registry{jobs: make(map[string]Job), logger: lgr}
}

func (r *registry) register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

func (r *registry) has(msgType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[msgType]
	return ok
}

// run executes the job for msg. retry reports whether a failed message should be retried.
func (r *registry) run(ctx context.Context, msg Message) (retry bool, err error) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("no job registered for type: %s", msg.Type)
	}

	start := time.Now()
	err = job.Handle(ctx, msg.Payload)
	if err == nil {
		r.logger.Debug("job done",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("elapsed_ms", time.Since(start)))
		return false, nil
	}
	if errors.Is(err, context.Canceled) {
		r.logger.Warn("job cancelled", logger.String("id", msg.ID), logger.String("job", job.Name()))
		return false, err
	}
	r.logger.Error("job failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))
	return true, err
}
