package usecase

import (
	"context"
	"fmt"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
)

// AuthorWindowSeconds is the span on each side of a post in which the same author
// repeating the same call is not a new signal.
const AuthorWindowSeconds int64 = 24 * 60 * 60

// Decision is the outcome of the dedup gate.
type Decision int

const (
	Admit Decision = iota
	RejectURLDuplicate
	RejectAuthorWindowDuplicate
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case RejectURLDuplicate:
		return "url_duplicate"
	case RejectAuthorWindowDuplicate:
		return "author_window_duplicate"
	default:
		return "unknown"
	}
}

// Candidate is a classified post about to be persisted.
type Candidate struct {
	SourceURL    string
	InfluencerID string
	Sentiment    models.Sentiment
	Timestamp    int64
}

// Admission decides on a candidate given the URL lookup and the sentiments the same
// influencer posted within ±AuthorWindowSeconds of the candidate timestamp.
func Admission(c Candidate, urlExists bool, windowSentiments []models.Sentiment) Decision {
	if urlExists {
		return RejectURLDuplicate
	}
	for _, s := range windowSentiments {
		if s == c.Sentiment {
			return RejectAuthorWindowDuplicate
		}
	}
	return Admit
}

// DedupGate runs Admission against the signal store.
type DedupGate struct {
	store drepo.SignalStore
}

func NewDedupGate(store drepo.SignalStore) *DedupGate {
	return &DedupGate{store: store}
}

// Check looks up both rules; the window is anchored at the candidate's own timestamp.
func (g *DedupGate) Check(ctx context.Context, c Candidate) (Decision, error) {
	exists, err := g.store.ExistsByURL(ctx, c.SourceURL)
	if err != nil {
		return Admit, fmt.Errorf("url lookup: %w", err)
	}
	if exists {
		return RejectURLDuplicate, nil
	}
	sentiments, err := g.store.SentimentsInWindow(ctx, c.InfluencerID,
		c.Timestamp-AuthorWindowSeconds, c.Timestamp+AuthorWindowSeconds)
	if err != nil {
		return Admit, fmt.Errorf("author window lookup: %w", err)
	}
	return Admission(c, false, sentiments), nil
}
