package models

import "time"

// Post is a fetched item normalized by the extractor.
type Post struct {
	ID          string
	Text        string
	CreatedAt   time.Time
	URL         string
	Handle      string
	DisplayName string
	AvatarURL   string
}

// Classification is the classifier verdict for one post.
type Classification struct {
	Sentiment   Sentiment `json:"sentiment"`
	Confidence  int       `json:"confidence"`
	Summary     string    `json:"summary"`
	TargetPrice *float64  `json:"target_price,omitempty"`
}

// Verification is the classifier verdict on an existing signal.
type Verification struct {
	Verification     string    `json:"verification"` // CORRECT | INCORRECT
	CorrectSentiment Sentiment `json:"correct_sentiment"`
	Confidence       int       `json:"confidence"`
	Reason           string    `json:"reason"`
}

// IsCorrect reports whether the prior classification was confirmed.
func (v Verification) IsCorrect() bool { return v.Verification == "CORRECT" }
