package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	pkgkafka "SignalPull/pkg/kafka"
)

// SignalEventsHandler consumes saved-signal events and appends them to the archive.
type SignalEventsHandler struct {
	topic   string
	archive drepo.SignalArchive
	metrics drepo.Metrics
}

var _ pkgkafka.MessageHandler = (*SignalEventsHandler)(nil)

func NewSignalEventsHandler(topic string, archive drepo.SignalArchive, metrics drepo.Metrics) *SignalEventsHandler {
	return &SignalEventsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *SignalEventsHandler) Topic() string { return h.topic }

func (h *SignalEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.SignalEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode signal event: %w", err)
	}
	if ev.SignalID == "" || !ev.Sentiment.IsDirectional() {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("invalid signal event %q", ev.SignalID)
	}
	if ev.SavedAt > 0 {
		h.metrics.RecordLatency("signal_event_lag_seconds", time.Since(time.Unix(ev.SavedAt, 0)).Seconds())
	}

	start := time.Now()
	err := h.archive.Store(ctx, &ev)
	h.metrics.RecordLatency("archive_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}
