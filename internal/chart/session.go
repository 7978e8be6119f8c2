package chart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	"SignalPull/internal/middleware"
	"SignalPull/internal/service/cluster"
	"SignalPull/pkg/logger"
)

// Message types sent to a chart client.
const (
	MessageFrame    = "frame"
	MessageState    = "state"
	MessageError    = "error"
	MessageExpanded = "expanded"
)

// Command types accepted from a chart client.
const (
	CommandViewport  = "viewport"
	CommandTimeframe = "timeframe"
	CommandReset     = "reset"
	CommandExpand    = "expand"
)

// Message is one server push to the client.
type Message struct {
	Type     string                  `json:"type"`
	Frame    *Frame                  `json:"frame,omitempty"`
	State    *StateChange            `json:"state,omitempty"`
	Expanded []models.ExpandedMarker `json:"expanded,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// Command is one client request.
type Command struct {
	Type   string  `json:"type"`
	TF     string  `json:"tf,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	From   int64   `json:"from,omitempty"`
	To     int64   `json:"to,omitempty"`

	// Cluster and Radius apply to expand.
	Cluster string  `json:"cluster,omitempty"`
	Radius  float64 `json:"radius,omitempty"`
}

// SignalLister is the read side of the signal store used by charts.
type SignalLister interface {
	List(ctx context.Context, from, to time.Time, limit int) ([]models.SignalView, error)
}

// SessionDeps are shared by all chart sessions.
type SessionDeps struct {
	Market  dservice.MarketData
	Signals SignalLister
	Feeds   dservice.LiveFeedFactory
	Metrics drepo.Metrics
	Logger  *logger.Logger
	Cluster cluster.Options
	Symbol  string
	MaxRPS  int
	Backoff BackoffPolicy
}

// Session drives one chart. All engine state is touched only by the Run goroutine;
// other goroutines talk to it through Send.
type Session struct {
	deps SessionDeps
	cmds chan Command
	now  func() time.Time
}

func NewSession(deps SessionDeps) *Session {
	return &Session{deps: deps, cmds: make(chan Command, 16), now: time.Now}
}

// Send queues a client command. It blocks while the queue is full.
func (s *Session) Send(ctx context.Context, cmd Command) error {
	select {
	case s.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// feedRun is one supervised feed for one timeframe.
type feedRun struct {
	cancel context.CancelFunc
	events chan models.FeedEvent
	states chan StateChange
	done   chan error
}

func (s *Session) startFeed(ctx context.Context, tf drepo.Timeframe) *feedRun {
	fctx, cancel := context.WithCancel(ctx)
	fr := &feedRun{
		cancel: cancel,
		events: make(chan models.FeedEvent, 64),
		states: make(chan StateChange, 8),
		done:   make(chan error, 1),
	}
	var opts []SupervisorOption
	if s.deps.Backoff != nil {
		opts = append(opts, WithBackoff(s.deps.Backoff))
	}
	sup := NewSupervisor(s.deps.Feeds, s.deps.Metrics, s.deps.Logger, opts...)
	go func() {
		fr.done <- sup.Run(fctx, tf,
			func(ev models.FeedEvent) {
				select {
				case fr.events <- ev:
				case <-fctx.Done():
				}
			},
			func(st StateChange) {
				select {
				case fr.states <- st:
				case <-fctx.Done():
				}
			})
	}()
	return fr
}

func (s *Session) load(ctx context.Context, e *Engine, tf drepo.Timeframe) error {
	candles, err := s.deps.Market.Candles(ctx, tf)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}
	from := time.Unix(0, 0)
	if len(candles) > 0 {
		from = time.Unix(candles[0].Time, 0)
	}
	signals, err := s.deps.Signals.List(ctx, from, s.now(), 0)
	if err != nil {
		return fmt.Errorf("load signals: %w", err)
	}
	e.SetCandles(tf, candles)
	e.SetSignals(signals)
	if t, err := s.deps.Market.Ticker(ctx); err == nil && t != nil {
		e.SetTicker(*t)
	}
	return nil
}

// Snapshot computes a single frame without a live feed. visible > 0 shows the trailing
// visible candles instead of the default range.
func (s *Session) Snapshot(ctx context.Context, tf drepo.Timeframe, width, height float64, visible int) (Frame, error) {
	e := NewEngine(s.deps.Cluster)
	e.SetSize(width, height)
	if err := s.load(ctx, e, tf); err != nil {
		return Frame{}, err
	}
	if candles := e.Candles(); visible > 0 && len(candles) > 0 {
		if visible > len(candles) {
			visible = len(candles)
		}
		e.SetVisibleRange(candles[len(candles)-visible].Time, candles[len(candles)-1].Time)
	}
	return e.Frame(nil), nil
}

// Run loads tf, pushes an initial frame and then a frame after every applied change.
// It returns when ctx is done or emit fails. A feed that gave up leaves the session
// serving the last known series.
func (s *Session) Run(ctx context.Context, tf drepo.Timeframe, width, height float64, emit func(Message) error) error {
	e := NewEngine(s.deps.Cluster)
	e.SetSize(width, height)
	if err := s.load(ctx, e, tf); err != nil {
		return err
	}

	frame := func() error {
		f := e.Frame(nil)
		return emit(Message{Type: MessageFrame, Frame: &f})
	}
	if err := frame(); err != nil {
		return err
	}

	guard := middleware.NewFeedGuard(s.deps.Metrics, middleware.WithMaxRPS(s.deps.MaxRPS))
	flush := time.NewTicker(guard.Interval())
	defer flush.Stop()

	fr := s.startFeed(ctx, tf)
	defer func() { fr.cancel() }()

	apply := func(evs []models.FeedEvent) error {
		if len(evs) == 0 {
			return nil
		}
		changed := false
		for _, ev := range evs {
			switch {
			case ev.Candle != nil:
				if e.ApplyLive(*ev.Candle) != LiveIgnored {
					changed = true
				}
			case ev.Ticker != nil:
				e.SetTicker(*ev.Ticker)
				s.deps.Metrics.RecordLastPrice(s.deps.Symbol, ev.Ticker.Price)
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return frame()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd := <-s.cmds:
			switch cmd.Type {
			case CommandViewport:
				e.SetSize(cmd.Width, cmd.Height)
				// a resize-only command keeps the current pan
				if cmd.From != 0 || cmd.To != 0 {
					e.SetVisibleRange(cmd.From, cmd.To)
				}
			case CommandReset:
				e.ResetView()
			case CommandExpand:
				if err := emit(expand(e.Frame(nil), cmd)); err != nil {
					return err
				}
				continue
			case CommandTimeframe:
				next := drepo.Timeframe(cmd.TF)
				if !drepo.IsValidTimeframe(next) {
					if err := emit(Message{Type: MessageError, Error: "invalid timeframe " + cmd.TF}); err != nil {
						return err
					}
					continue
				}
				fr.cancel()
				if err := s.load(ctx, e, next); err != nil {
					if err := emit(Message{Type: MessageError, Error: err.Error()}); err != nil {
						return err
					}
				}
				guard = middleware.NewFeedGuard(s.deps.Metrics, middleware.WithMaxRPS(s.deps.MaxRPS))
				fr = s.startFeed(ctx, e.Timeframe())
			default:
				if err := emit(Message{Type: MessageError, Error: "unknown command " + cmd.Type}); err != nil {
					return err
				}
				continue
			}
			if err := frame(); err != nil {
				return err
			}

		case ev := <-fr.events:
			if err := apply(guard.Admit(ev, s.now())); err != nil {
				return err
			}

		case <-flush.C:
			if err := apply(guard.Flush(s.now())); err != nil {
				return err
			}

		case st := <-fr.states:
			if err := emit(Message{Type: MessageState, State: &st}); err != nil {
				return err
			}

		case err := <-fr.done:
			fr.done = nil
			if errors.Is(err, ErrFeedExhausted) {
				s.deps.Logger.Warn("Chart session continues without live feed",
					logger.String("tf", string(e.Timeframe())))
			}
		}
	}
}

// expand lays out the members of one cluster of f; an unknown id is reported as an error.
func expand(f Frame, cmd Command) Message {
	for _, c := range f.Clusters {
		if c.ID == cmd.Cluster {
			return Message{Type: MessageExpanded, Expanded: cluster.ExpandedPositions(c, cmd.Radius)}
		}
	}
	return Message{Type: MessageError, Error: "unknown cluster " + cmd.Cluster}
}
