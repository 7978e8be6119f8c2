package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"SignalPull/internal/domain/models"
)

type memArchive struct {
	events []*models.SignalEvent
	err    error
}

func (m *memArchive) Store(_ context.Context, ev *models.SignalEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}
func (m *memArchive) Health(context.Context) error { return nil }

func TestSignalEventsHandler(t *testing.T) {
	arch := &memArchive{}
	metrics := newNopMetrics()
	h := NewSignalEventsHandler("signals.saved", arch, metrics)
	if h.Topic() != "signals.saved" {
		t.Fatalf("topic = %s", h.Topic())
	}

	b, _ := json.Marshal(models.SignalEvent{SignalID: "s1", Sentiment: models.SentimentLong, EntryPrice: 1})
	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(arch.events) != 1 || arch.events[0].SignalID != "s1" {
		t.Fatalf("archived %+v", arch.events)
	}

	if err := h.Handle(context.Background(), []byte("{")); err == nil {
		t.Fatal("bad json should error")
	}
	bad, _ := json.Marshal(models.SignalEvent{SignalID: "s2", Sentiment: models.SentimentNeutral})
	if err := h.Handle(context.Background(), bad); err == nil {
		t.Fatal("neutral event should be rejected")
	}

	arch.err = errors.New("clickhouse down")
	if err := h.Handle(context.Background(), b); err == nil {
		t.Fatal("store error should propagate")
	}
	if metrics.errors["consumer_store"] != 1 || metrics.errors["consumer_unmarshal"] != 1 {
		t.Fatalf("errors %v", metrics.errors)
	}
}
