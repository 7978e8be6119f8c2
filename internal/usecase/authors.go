package usecase

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	GroupCore      = "core"
	GroupAll       = "all"
	GroupMovers    = "movers"
	GroupSentiment = "sentiment"
	GroupChartists = "chartists"
)

// AuthorGroups holds the recent-mode pool and the named backfill groups.
type AuthorGroups struct {
	Pool      []string
	Movers    []string
	Sentiment []string
	Chartists []string
}

// Resolve returns the handles of a backfill group; empty means core (movers + sentiment).
func (g AuthorGroups) Resolve(group string) ([]string, error) {
	var out []string
	switch strings.ToLower(group) {
	case "", GroupCore:
		out = concat(g.Movers, g.Sentiment)
	case GroupAll:
		out = concat(g.Movers, g.Sentiment, g.Chartists)
	case GroupMovers:
		out = concat(g.Movers)
	case GroupSentiment:
		out = concat(g.Sentiment)
	case GroupChartists:
		out = concat(g.Chartists)
	default:
		return nil, fmt.Errorf("unknown author group %q", group)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("author group %q is empty", group)
	}
	return out, nil
}

// concat joins lists dropping repeated handles (case-insensitive), keeping first occurrence.
func concat(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, h := range l {
			k := strings.ToLower(h)
			if h == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, h)
		}
	}
	return out
}

// Sampler picks a random subset of handles. The RNG is swappable for deterministic tests.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{rng: rng}
}

// Take shuffles a copy of pool (Fisher-Yates) and returns the first n.
func (s *Sampler) Take(pool []string, n int) []string {
	out := append([]string(nil), pool...)
	s.mu.Lock()
	for i := len(out) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	s.mu.Unlock()
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
