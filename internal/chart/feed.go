package chart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	"SignalPull/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

// FeedState is the connection state of a live feed.
type FeedState string

const (
	StateConnecting   FeedState = "connecting"
	StateLive         FeedState = "live"
	StateReconnecting FeedState = "reconnecting"
	StateFailed       FeedState = "failed"
)

const (
	DefaultMaxRetries  = 5
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultDelayFactor = 2.0
)

// ErrFeedExhausted is returned once reconnect attempts are used up.
var ErrFeedExhausted = errors.New("live feed: reconnect attempts exhausted")

var errFeedClosed = errors.New("live feed closed")

// StateChange is reported on every transition.
type StateChange struct {
	State   FeedState `json:"state"`
	Attempt int       `json:"attempt,omitempty"`
	Err     string    `json:"error,omitempty"`
}

// BackoffPolicy builds the delay schedule for one Run.
type BackoffPolicy func() backoff.BackOff

// ExponentialPolicy doubles from base up to max with no jitter and gives up after
// maxRetries consecutive failures.
func ExponentialPolicy(base, max time.Duration, maxRetries uint64) BackoffPolicy {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = base
		b.Multiplier = defaultDelayFactor
		b.MaxInterval = max
		b.RandomizationFactor = 0
		b.MaxElapsedTime = 0
		return backoff.WithMaxRetries(b, maxRetries)
	}
}

// Supervisor keeps a LiveFeed connected and reconnects with backoff.
type Supervisor struct {
	factory dservice.LiveFeedFactory
	policy  BackoffPolicy
	metrics drepo.Metrics
	logger  *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

type SupervisorOption func(*Supervisor)

func WithBackoff(p BackoffPolicy) SupervisorOption {
	return func(s *Supervisor) { s.policy = p }
}

func NewSupervisor(factory dservice.LiveFeedFactory, metrics drepo.Metrics, lgr *logger.Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		factory: factory,
		policy:  ExponentialPolicy(defaultBaseDelay, defaultMaxDelay, DefaultMaxRetries),
		metrics: metrics,
		logger:  lgr,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run delivers events for tf until ctx is done or reconnects are exhausted. The retry
// budget resets after a session that delivered at least one event.
func (s *Supervisor) Run(ctx context.Context, tf drepo.Timeframe, onEvent func(models.FeedEvent), onState func(StateChange)) error {
	report := func(st StateChange) {
		s.metrics.RecordFeedState(string(tf), string(st.State))
		if onState != nil {
			onState(st)
		}
	}

	b := s.policy()
	b.Reset()
	attempt := 0
	report(StateChange{State: StateConnecting})
	for {
		delivered, err := s.session(ctx, tf, onEvent, report)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delivered {
			b.Reset()
			attempt = 0
		}

		d := b.NextBackOff()
		if d == backoff.Stop {
			report(StateChange{State: StateFailed, Attempt: attempt, Err: err.Error()})
			s.logger.Error("Live feed gave up",
				logger.String("tf", string(tf)),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("%w: %v", ErrFeedExhausted, err)
		}
		attempt++
		report(StateChange{State: StateReconnecting, Attempt: attempt, Err: err.Error()})
		s.logger.Warn("Live feed reconnecting",
			logger.String("tf", string(tf)),
			logger.Int("attempt", attempt),
			logger.Duration("delay", d),
			logger.Error(err))
		if err := s.sleep(ctx, d); err != nil {
			return err
		}
	}
}

// session runs one connection and always returns a non-nil error.
func (s *Supervisor) session(ctx context.Context, tf drepo.Timeframe, onEvent func(models.FeedEvent), report func(StateChange)) (bool, error) {
	feed := s.factory()
	defer feed.Close()

	if err := feed.Connect(ctx, tf); err != nil {
		return false, err
	}
	report(StateChange{State: StateLive})

	events, errs := feed.Read(ctx)
	delivered := false
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if err, ok := <-errs; ok && err != nil {
					return delivered, err
				}
				return delivered, errFeedClosed
			}
			delivered = true
			onEvent(ev)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
