// Package chart keeps the live candle series of one chart session, binds signals to
// candles and turns them into clustered screen markers.
package chart

import (
	"sort"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	"SignalPull/internal/service/cluster"
	xutil "SignalPull/pkg/util"
)

const (
	defaultWidth    = 1200
	defaultHeight   = 600
	defaultCapacity = 5000
)

// LiveResult is what ApplyLive did with an update.
type LiveResult int

const (
	LiveIgnored LiveResult = iota
	LiveReplaced
	LiveAppended
)

func (r LiveResult) String() string {
	switch r {
	case LiveReplaced:
		return "replaced"
	case LiveAppended:
		return "appended"
	default:
		return "ignored"
	}
}

// binding is a signal resolved against the current series.
type binding struct {
	signal   models.SignalView
	time     int64   // aligned candle start
	price    float64 // candle close, or entry price when no candle matches
	onCandle bool
}

// Frame is one projected view of the markers.
type Frame struct {
	Timeframe  drepo.Timeframe         `json:"timeframe"`
	Viewport   Viewport                `json:"viewport"`
	Standalone []models.MarkerPosition `json:"standalone"`
	Clusters   []models.MarkerCluster  `json:"clusters"`
	Outside    []string                `json:"outside"`
	Last       *models.Candle          `json:"last,omitempty"`
	Ticker     *models.Ticker          `json:"ticker,omitempty"`
}

// Engine is owned by a single goroutine; it is not safe for concurrent use.
//
// Membership (which candle each signal belongs to and its reference price) depends on
// signals, candles and timeframe and is recomputed lazily when one of them changed.
// Viewport changes only re-run projection and clustering.
type Engine struct {
	tf       drepo.Timeframe
	candles  []models.Candle
	capacity int
	signals  []models.SignalView
	ticker   *models.Ticker

	bindings   []binding
	dirty      bool
	recomputes int

	viewport Viewport
	follow   bool // viewport tracks the series tail
	opts     cluster.Options
}

func NewEngine(opts cluster.Options) *Engine {
	return &Engine{
		tf:       drepo.DefaultTimeframe(),
		opts:     opts,
		follow:   true,
		viewport: Viewport{Width: defaultWidth, Height: defaultHeight},
	}
}

func (e *Engine) Timeframe() drepo.Timeframe { return e.tf }

// Candles returns the series; callers must not modify it.
func (e *Engine) Candles() []models.Candle { return e.candles }

// SetCandles replaces the series, e.g. on a timeframe change. The live window keeps the
// loaded length.
func (e *Engine) SetCandles(tf drepo.Timeframe, candles []models.Candle) {
	cs := append([]models.Candle(nil), candles...)
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Time < cs[j].Time })
	e.tf = tf
	e.candles = cs
	e.capacity = len(cs)
	if e.capacity == 0 {
		e.capacity = defaultCapacity
	}
	e.dirty = true
	e.ResetView()
}

func (e *Engine) SetSignals(signals []models.SignalView) {
	e.signals = append([]models.SignalView(nil), signals...)
	e.dirty = true
}

func (e *Engine) SetTicker(t models.Ticker) { e.ticker = &t }

// ApplyLive merges one live candle: same time replaces the last candle, a later time
// appends and evicts the oldest beyond the window, an earlier time is ignored.
func (e *Engine) ApplyLive(u models.CandleUpdate) LiveResult {
	c := u.Candle
	n := len(e.candles)
	if n > 0 {
		last := e.candles[n-1]
		switch {
		case c.Time == last.Time:
			e.candles[n-1] = c
			e.dirty = true
			if e.follow {
				e.viewport.FitPrices(e.candles)
			}
			return LiveReplaced
		case c.Time < last.Time:
			return LiveIgnored
		}
	}

	e.candles = append(e.candles, c)
	if len(e.candles) > e.capacity {
		e.candles = append(e.candles[:0:0], e.candles[len(e.candles)-e.capacity:]...)
	}
	e.dirty = true
	if e.follow {
		e.ResetView()
	}
	return LiveAppended
}

// DefaultVisibleRange is the trailing DefaultVisibleCandles of the series, or the whole
// series when that count is zero or exceeds the length.
func (e *Engine) DefaultVisibleRange() (from, to int64) {
	n := len(e.candles)
	if n == 0 {
		return 0, 0
	}
	k := drepo.DefaultVisibleCandles(e.tf)
	if k <= 0 || k >= n {
		return e.candles[0].Time, e.candles[n-1].Time
	}
	return e.candles[n-k].Time, e.candles[n-1].Time
}

// ResetView returns to the default range and starts following the tail.
func (e *Engine) ResetView() {
	e.viewport.From, e.viewport.To = e.DefaultVisibleRange()
	e.viewport.FitPrices(e.candles)
	e.follow = true
}

// SetSize changes the pixel size only.
func (e *Engine) SetSize(width, height float64) {
	if width > 0 {
		e.viewport.Width = width
	}
	if height > 0 {
		e.viewport.Height = height
	}
}

// SetVisibleRange pans or zooms. A zero range resets to the default view.
func (e *Engine) SetVisibleRange(from, to int64) {
	if from == 0 && to == 0 {
		e.ResetView()
		return
	}
	if to < from {
		from, to = to, from
	}
	e.viewport.From, e.viewport.To = from, to
	e.viewport.FitPrices(e.candles)
	_, tail := e.DefaultVisibleRange()
	e.follow = to >= tail
}

func (e *Engine) Viewport() Viewport { return e.viewport }

func (e *Engine) candleAt(t int64) (models.Candle, bool) {
	i := sort.Search(len(e.candles), func(i int) bool { return e.candles[i].Time >= t })
	if i < len(e.candles) && e.candles[i].Time == t {
		return e.candles[i], true
	}
	return models.Candle{}, false
}

func (e *Engine) recompute() {
	e.bindings = e.bindings[:0]
	for _, s := range e.signals {
		t := xutil.AlignTimestamp(s.SignalTimestamp, string(e.tf))
		b := binding{signal: s, time: t, price: s.EntryPrice}
		if c, ok := e.candleAt(t); ok {
			b.price = c.Close
			b.onCandle = true
		}
		e.bindings = append(e.bindings, b)
	}
	e.dirty = false
	e.recomputes++
}

// Frame projects all bound signals through p (nil means the engine viewport) and
// clusters the visible ones. Signals that cannot be placed are listed in Outside and
// stay bound for later frames.
func (e *Engine) Frame(p Projector) Frame {
	if e.dirty {
		e.recompute()
	}
	if p == nil {
		p = Linear{V: e.viewport}
	}

	positions := make([]models.MarkerPosition, 0, len(e.bindings))
	outside := []string{}
	for _, b := range e.bindings {
		x, okX := p.TimeToX(b.time)
		y, okY := p.PriceToY(b.price)
		if !okX || !okY {
			outside = append(outside, b.signal.ID)
			continue
		}
		positions = append(positions, models.MarkerPosition{Signal: b.signal, X: x, Y: y})
	}

	res := cluster.Cluster(positions, e.opts)
	f := Frame{
		Timeframe:  e.tf,
		Viewport:   e.viewport,
		Standalone: res.Standalone,
		Clusters:   res.Clusters,
		Outside:    outside,
		Ticker:     e.ticker,
	}
	if n := len(e.candles); n > 0 {
		last := e.candles[n-1]
		f.Last = &last
	}
	return f
}
