package usecase

import (
	"context"
	"testing"

	"SignalPull/internal/domain/models"
)

func TestAdmissionURLDuplicate(t *testing.T) {
	c := Candidate{SourceURL: "u", InfluencerID: "x", Sentiment: models.SentimentLong, Timestamp: 100}
	if got := Admission(c, true, nil); got != RejectURLDuplicate {
		t.Fatalf("expected url duplicate, got %s", got)
	}
}

func TestDedupGateAuthorWindow(t *testing.T) {
	store := newMemStore()
	t0 := int64(1_700_000_000)
	store.put(&models.Signal{InfluencerID: "x", Sentiment: models.SentimentLong, SignalTimestamp: t0, SourceURL: "https://x.com/a/1"})
	gate := NewDedupGate(store)
	ctx := context.Background()

	cases := []struct {
		name string
		c    Candidate
		want Decision
	}{
		{"same sentiment 1h later", Candidate{"https://x.com/a/2", "x", models.SentimentLong, t0 + 3600}, RejectAuthorWindowDuplicate},
		{"same sentiment 1h earlier", Candidate{"https://x.com/a/3", "x", models.SentimentLong, t0 - 3600}, RejectAuthorWindowDuplicate},
		{"same sentiment beyond 24h", Candidate{"https://x.com/a/4", "x", models.SentimentLong, t0 + 100000}, Admit},
		{"opposite sentiment", Candidate{"https://x.com/a/5", "x", models.SentimentShort, t0 + 3600}, Admit},
		{"other influencer", Candidate{"https://x.com/b/1", "y", models.SentimentLong, t0 + 3600}, Admit},
		{"known url", Candidate{"https://x.com/a/1", "x", models.SentimentShort, t0}, RejectURLDuplicate},
	}
	for _, tc := range cases {
		got, err := gate.Check(ctx, tc.c)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}
