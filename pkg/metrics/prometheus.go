package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var feedStates = []string{"connecting", "live", "reconnecting", "failed"}

// Recorder implements the domain Metrics interface on Prometheus.
type Recorder struct {
	signalsSaved *prometheus.CounterVec
	skips        *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	feedState    *prometheus.GaugeVec
}

// New registers the collectors on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		signalsSaved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signalpull_signals_saved_total",
			Help: "Signals persisted by the collection pipeline",
		}, []string{"sentiment"}),
		skips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signalpull_items_skipped_total",
			Help: "Fetched items dropped before persistence, by reason",
		}, []string{"reason"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signalpull_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
		lastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalpull_last_price",
			Help: "Last seen price per symbol",
		}, []string{"symbol"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalpull_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		feedState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalpull_live_feed_state",
			Help: "1 for the current state of the live feed per timeframe",
		}, []string{"tf", "state"}),
	}
}

func (r *Recorder) RecordSignalSaved(sentiment string) {
	r.signalsSaved.WithLabelValues(sentiment).Inc()
}

func (r *Recorder) RecordSkip(reason string) {
	r.skips.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordFeedState sets state to 1 and the other states of tf to 0.
func (r *Recorder) RecordFeedState(tf string, state string) {
	for _, s := range feedStates {
		v := 0.0
		if s == state {
			v = 1
		}
		r.feedState.WithLabelValues(tf, s).Set(v)
	}
}
