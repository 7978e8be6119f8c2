package middleware

import (
	"testing"
	"time"

	"SignalPull/internal/domain/models"
)

type countMetrics struct{ errors map[string]int }

func (m *countMetrics) RecordSignalSaved(string)        {}
func (m *countMetrics) RecordSkip(string)               {}
func (m *countMetrics) RecordError(k string)            { m.errors[k]++ }
func (m *countMetrics) RecordLastPrice(string, float64) {}
func (m *countMetrics) RecordLatency(string, float64)   {}
func (m *countMetrics) RecordFeedState(string, string)  {}

func candle(ts int64, close float64, isNew bool) models.FeedEvent {
	return models.FeedEvent{Candle: &models.CandleUpdate{
		Candle:      models.Candle{Time: ts, Open: close, High: close, Low: close, Close: close},
		IsNewCandle: isNew,
	}}
}

func TestFeedGuardCoalescesUpdates(t *testing.T) {
	g := NewFeedGuard(&countMetrics{errors: map[string]int{}}, WithMaxRPS(4))
	t0 := time.Unix(1_700_000_000, 0)

	if out := g.Admit(candle(3600, 10, true), t0); len(out) != 1 {
		t.Fatalf("new candle must pass, got %d", len(out))
	}
	if out := g.Admit(candle(3600, 11, false), t0.Add(50*time.Millisecond)); len(out) != 0 {
		t.Fatal("update inside interval should be held")
	}
	if out := g.Admit(candle(3600, 12, false), t0.Add(100*time.Millisecond)); len(out) != 0 {
		t.Fatal("update inside interval should be held")
	}
	if out := g.Flush(t0.Add(200 * time.Millisecond)); len(out) != 0 {
		t.Fatal("flush before interval should release nothing")
	}
	out := g.Flush(t0.Add(300 * time.Millisecond))
	if len(out) != 1 || out[0].Candle.Close != 12 {
		t.Fatalf("flush should release the latest held update, got %+v", out)
	}
}

func TestFeedGuardNewCandleReleasesHeldUpdate(t *testing.T) {
	g := NewFeedGuard(&countMetrics{errors: map[string]int{}}, WithMaxRPS(1))
	t0 := time.Unix(1_700_000_000, 0)

	g.Admit(candle(3600, 10, true), t0)
	g.Admit(candle(3600, 15, false), t0.Add(10*time.Millisecond))
	out := g.Admit(candle(7200, 16, true), t0.Add(20*time.Millisecond))
	if len(out) != 2 || out[0].Candle.Time != 3600 || out[0].Candle.Close != 15 || out[1].Candle.Time != 7200 {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestFeedGuardRejectsInvalid(t *testing.T) {
	m := &countMetrics{errors: map[string]int{}}
	g := NewFeedGuard(m)
	bad := []models.FeedEvent{
		{},
		candle(0, 10, true),
		candle(3600, -1, true),
		{Ticker: &models.Ticker{Price: 0}},
	}
	for _, ev := range bad {
		if out := g.Admit(ev, time.Now()); out != nil {
			t.Errorf("accepted %+v", ev)
		}
	}
	if m.errors["feed_invalid"] != len(bad) {
		t.Fatalf("errors %v", m.errors)
	}
}
