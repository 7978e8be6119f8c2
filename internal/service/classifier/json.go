package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"SignalPull/internal/domain/models"
)

var (
	ErrNoJSON           = errors.New("classifier: no json object in response")
	ErrInvalidSentiment = errors.New("classifier: invalid sentiment")
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\n?(.*?)\\n?```")

// ExtractJSON strips code fences and returns the first balanced {...} span. When braces
// do not balance it falls back to the span between the first '{' and the last '}', and
// with no braces at all it returns the cleaned text unchanged.
func ExtractJSON(text string) string {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(text, "$1"))

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return cleaned
	}
	if end := balancedEnd(cleaned, start); end > start {
		return cleaned[start : end+1]
	}
	if last := strings.LastIndexByte(cleaned, '}'); last > start {
		return cleaned[start : last+1]
	}
	return cleaned
}

// balancedEnd returns the index of the brace closing the object opened at start, or -1.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

type rawClassification struct {
	Sentiment   string   `json:"sentiment"`
	Confidence  float64  `json:"confidence"`
	Summary     string   `json:"summary"`
	TargetPrice *float64 `json:"target_price"`
}

// RepairAndParse extracts and decodes a classification from a model response.
func RepairAndParse(text string) (*models.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoJSON
	}
	raw := ExtractJSON(text)
	if !strings.HasPrefix(raw, "{") {
		return nil, ErrNoJSON
	}
	var rc rawClassification
	if err := json.Unmarshal([]byte(raw), &rc); err != nil {
		return nil, fmt.Errorf("classifier: parse json: %w", err)
	}
	s := models.Sentiment(strings.ToUpper(strings.TrimSpace(rc.Sentiment)))
	if !s.IsDirectional() && s != models.SentimentNeutral {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSentiment, rc.Sentiment)
	}
	return &models.Classification{
		Sentiment:   s,
		Confidence:  clampConfidence(rc.Confidence),
		Summary:     rc.Summary,
		TargetPrice: rc.TargetPrice,
	}, nil
}

type rawVerification struct {
	Verification     string  `json:"verification"`
	CorrectSentiment string  `json:"correct_sentiment"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
}

// ParseVerification decodes a re-verification response.
func ParseVerification(text string) (*models.Verification, error) {
	raw := ExtractJSON(text)
	if !strings.HasPrefix(raw, "{") {
		return nil, ErrNoJSON
	}
	var rv rawVerification
	if err := json.Unmarshal([]byte(raw), &rv); err != nil {
		return nil, fmt.Errorf("classifier: parse json: %w", err)
	}
	v := strings.ToUpper(strings.TrimSpace(rv.Verification))
	if v != "CORRECT" && v != "INCORRECT" {
		return nil, fmt.Errorf("classifier: invalid verification %q", rv.Verification)
	}
	s := models.Sentiment(strings.ToUpper(strings.TrimSpace(rv.CorrectSentiment)))
	if !s.IsDirectional() && s != models.SentimentNeutral {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSentiment, rv.CorrectSentiment)
	}
	return &models.Verification{
		Verification:     v,
		CorrectSentiment: s,
		Confidence:       clampConfidence(rv.Confidence),
		Reason:           rv.Reason,
	}, nil
}

// clampConfidence truncates so a fractional score never crosses the filter threshold.
func clampConfidence(v float64) int {
	c := int(math.Floor(v))
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
