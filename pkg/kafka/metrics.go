package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	producedTotal   *prometheus.CounterVec
	producedBytes   *prometheus.CounterVec
	produceSeconds  *prometheus.HistogramVec
	consumedTotal   *prometheus.CounterVec
	handleSeconds   *prometheus.HistogramVec
	deadLetterTotal *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		producedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalpull_kafka_produced_messages_total",
			Help: "Messages written to Kafka",
		}, []string{"topic", "result"})
		producedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalpull_kafka_produced_bytes_total",
			Help: "Payload bytes written to Kafka",
		}, []string{"topic"})
		produceSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalpull_kafka_produce_seconds",
			Help:    "Write latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
		consumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalpull_kafka_consumed_messages_total",
			Help: "Messages handled by consumers",
		}, []string{"topic", "result"})
		handleSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalpull_kafka_handle_seconds",
			Help:    "Handler time per message including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
		deadLetterTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalpull_kafka_dead_letter_total",
			Help: "Messages moved to the dead-letter topic",
		}, []string{"topic"})
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func observeProduce(topic string, bytes, count int, dur time.Duration, err error) {
	producedTotal.WithLabelValues(topic, result(err)).Add(float64(count))
	if err == nil {
		producedBytes.WithLabelValues(topic).Add(float64(bytes))
	}
	produceSeconds.WithLabelValues(topic).Observe(dur.Seconds())
}

func observeHandle(topic string, dur time.Duration, err error) {
	consumedTotal.WithLabelValues(topic, result(err)).Inc()
	handleSeconds.WithLabelValues(topic).Observe(dur.Seconds())
}
