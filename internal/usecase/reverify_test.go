package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	"SignalPull/pkg/logger"
)

func seedSignal(store *memStore, url, text string, s models.Sentiment) string {
	return store.put(&models.Signal{
		InfluencerID: "inf-1", Sentiment: s, Confidence: 60, EntryPrice: 100,
		SignalTimestamp: 1_700_000_000, SourceURL: url, OriginalText: text,
	})
}

func TestReverifyOutcomes(t *testing.T) {
	store := newMemStore()
	cls := &fakeClassifier{verify: map[string]models.Verification{
		"ok":      {Verification: "CORRECT", CorrectSentiment: models.SentimentLong, Confidence: 90},
		"flip":    {Verification: "INCORRECT", CorrectSentiment: models.SentimentShort, Confidence: 85},
		"neutral": {Verification: "INCORRECT", CorrectSentiment: models.SentimentNeutral, Confidence: 70},
	}}
	r := NewReverifier(store, cls, newNopMetrics(), logger.Nop())
	ctx := context.Background()

	okID := seedSignal(store, "u1", "ok", models.SentimentLong)
	flipID := seedSignal(store, "u2", "flip", models.SentimentLong)
	delID := seedSignal(store, "u3", "neutral", models.SentimentLong)

	res, err := r.Reverify(ctx, okID)
	if err != nil || res.Outcome != OutcomeConfirmed {
		t.Fatalf("confirmed: %+v %v", res, err)
	}

	res, err = r.Reverify(ctx, flipID)
	if err != nil || res.Outcome != OutcomeCorrected {
		t.Fatalf("corrected: %+v %v", res, err)
	}
	got, _ := store.Get(ctx, flipID)
	if got.Sentiment != models.SentimentShort || got.Confidence != 85 || got.SourceURL != "u2" {
		t.Fatalf("signal not rewritten: %+v", got)
	}

	res, err = r.Reverify(ctx, delID)
	if err != nil || res.Outcome != OutcomeDeleted {
		t.Fatalf("deleted: %+v %v", res, err)
	}
	if _, err := store.Get(ctx, delID); !errors.Is(err, drepo.ErrNotFound) {
		t.Fatalf("signal should be gone, got %v", err)
	}
}

func TestReverifyJobIgnoresMissingSignal(t *testing.T) {
	job := NewReverifyJob(NewReverifier(newMemStore(), &fakeClassifier{}, newNopMetrics(), logger.Nop()))
	raw, _ := json.Marshal(ReverifyPayload{SignalID: "gone"})
	if err := job.Handle(context.Background(), json.RawMessage(raw)); err != nil {
		t.Fatalf("missing signal should not be retried: %v", err)
	}
	if job.Type() != ReverifyMessageType {
		t.Fatalf("type = %s", job.Type())
	}
}

func TestReverifyJobPropagatesClassifierError(t *testing.T) {
	store := newMemStore()
	id := seedSignal(store, "u1", "unknown text", models.SentimentLong)
	job := NewReverifyJob(NewReverifier(store, &fakeClassifier{}, newNopMetrics(), logger.Nop()))
	if err := job.Handle(context.Background(), &ReverifyPayload{SignalID: id}); err == nil {
		t.Fatal("classifier failure should surface for retry")
	}
}
