package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ClassifierLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signalpull",
			Subsystem: "classifier",
			Name:      "latency_seconds",
			Help:      "Latency of classifier calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"op"},
	)

	ClassifierErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalpull",
			Subsystem: "classifier",
			Name:      "errors_total",
			Help:      "Classifier failures by op and kind",
		},
		[]string{"op", "kind"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ClassifierLatency, ClassifierErrors)
	})
}
