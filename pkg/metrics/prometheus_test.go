package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordSignalSaved("LONG")
	r.RecordSignalSaved("LONG")
	r.RecordSkip("low_confidence")
	r.RecordLastPrice("BTCUSDT", 64000)

	if got := testutil.ToFloat64(r.signalsSaved.WithLabelValues("LONG")); got != 2 {
		t.Errorf("saved LONG = %v", got)
	}
	if got := testutil.ToFloat64(r.skips.WithLabelValues("low_confidence")); got != 1 {
		t.Errorf("skips = %v", got)
	}
	if got := testutil.ToFloat64(r.lastPrice.WithLabelValues("BTCUSDT")); got != 64000 {
		t.Errorf("last price = %v", got)
	}
}

func TestRecordFeedStateIsExclusive(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.RecordFeedState("4h", "connecting")
	r.RecordFeedState("4h", "live")

	if got := testutil.ToFloat64(r.feedState.WithLabelValues("4h", "live")); got != 1 {
		t.Errorf("live = %v", got)
	}
	if got := testutil.ToFloat64(r.feedState.WithLabelValues("4h", "connecting")); got != 0 {
		t.Errorf("connecting = %v", got)
	}
}
