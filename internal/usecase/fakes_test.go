package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
)

type memStore struct {
	mu        sync.Mutex
	byID      map[string]*models.Signal
	seq       int
	healthErr error
}

func newMemStore() *memStore { return &memStore{byID: make(map[string]*models.Signal)} }

func (m *memStore) put(s *models.Signal) string {
	id, _ := m.Upsert(context.Background(), s)
	return id
}

func (m *memStore) all() []models.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Signal, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignalTimestamp < out[j].SignalTimestamp })
	return out
}

func (m *memStore) ExistsByURL(_ context.Context, u string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.SourceURL == u {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SentimentsInWindow(_ context.Context, influencerID string, from, to int64) ([]models.Sentiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Sentiment
	for _, s := range m.byID {
		if s.InfluencerID == influencerID && s.SignalTimestamp >= from && s.SignalTimestamp <= to {
			out = append(out, s.Sentiment)
		}
	}
	return out, nil
}

func (m *memStore) Upsert(_ context.Context, s *models.Signal) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cur := range m.byID {
		if cur.SourceURL == s.SourceURL {
			cp := *s
			cp.ID = id
			m.byID[id] = &cp
			return id, nil
		}
	}
	m.seq++
	cp := *s
	cp.ID = fmt.Sprintf("sig-%d", m.seq)
	m.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, drepo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return drepo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memStore) List(_ context.Context, from, to time.Time, limit int) ([]models.SignalView, error) {
	var out []models.SignalView
	for _, s := range m.all() {
		if s.SignalTimestamp >= from.Unix() && s.SignalTimestamp <= to.Unix() {
			out = append(out, models.SignalView{Signal: s})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListByPriceSource(_ context.Context, src models.PriceSource) ([]models.Signal, error) {
	var out []models.Signal
	for _, s := range m.all() {
		if s.PriceSource == src {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) UpdateEntryPrice(_ context.Context, id string, price float64, src models.PriceSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return drepo.ErrNotFound
	}
	s.EntryPrice = price
	s.PriceSource = src
	return nil
}

func (m *memStore) Health(context.Context) error { return m.healthErr }

type memInfluencers struct {
	mu       sync.Mutex
	byHandle map[string]*models.Influencer
	seq      int
}

func newMemInfluencers() *memInfluencers {
	return &memInfluencers{byHandle: make(map[string]*models.Influencer)}
}

func (m *memInfluencers) GetByHandle(_ context.Context, h string) (*models.Influencer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.byHandle[strings.ToLower(h)]; ok {
		return in, nil
	}
	return nil, drepo.ErrNotFound
}

func (m *memInfluencers) Create(_ context.Context, in *models.Influencer) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("inf-%d", m.seq)
	cp := *in
	cp.ID = id
	m.byHandle[strings.ToLower(in.TwitterHandle)] = &cp
	return id, nil
}

type fakeSource struct {
	items []map[string]interface{}
	err   error
	got   []dservice.FetchQuery
}

func (f *fakeSource) Fetch(_ context.Context, q dservice.FetchQuery) ([]map[string]interface{}, error) {
	f.got = append(f.got, q)
	return f.items, f.err
}

// fakeClassifier answers by text; unknown text is an error.
type fakeClassifier struct {
	byText map[string]models.Classification
	verify map[string]models.Verification
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (*models.Classification, error) {
	f.calls++
	c, ok := f.byText[text]
	if !ok {
		return nil, errors.New("classifier: no JSON object in response")
	}
	return &c, nil
}

func (f *fakeClassifier) Verify(_ context.Context, text string, _ models.Sentiment) (*models.Verification, error) {
	v, ok := f.verify[text]
	if !ok {
		return nil, errors.New("verify failed")
	}
	return &v, nil
}

type fakePrices struct {
	historical map[int64]float64
	current    float64
	histErr    error
	curErr     error
	curCalls   int
}

func (f *fakePrices) CurrentPrice(context.Context) (float64, error) {
	f.curCalls++
	if f.curErr != nil {
		return 0, f.curErr
	}
	return f.current, nil
}

func (f *fakePrices) HistoricalPrice(_ context.Context, ts int64) (float64, bool, error) {
	if f.histErr != nil {
		return 0, false, f.histErr
	}
	p, ok := f.historical[ts]
	return p, ok, nil
}

type fakePublisher struct {
	events []*models.SignalEvent
}

func (f *fakePublisher) PublishSaved(_ context.Context, ev *models.SignalEvent) error {
	f.events = append(f.events, ev)
	return nil
}
func (f *fakePublisher) Close() error { return nil }

type nopMetrics struct {
	mu     sync.Mutex
	skips  map[string]int
	errors map[string]int
}

func newNopMetrics() *nopMetrics {
	return &nopMetrics{skips: map[string]int{}, errors: map[string]int{}}
}

func (m *nopMetrics) RecordSignalSaved(string) {}
func (m *nopMetrics) RecordSkip(reason string) {
	m.mu.Lock()
	m.skips[reason]++
	m.mu.Unlock()
}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *nopMetrics) RecordLastPrice(string, float64) {}
func (m *nopMetrics) RecordLatency(string, float64)   {}
func (m *nopMetrics) RecordFeedState(string, string)  {}

var (
	_ drepo.SignalStore     = (*memStore)(nil)
	_ drepo.InfluencerStore = (*memInfluencers)(nil)
	_ drepo.Metrics         = (*nopMetrics)(nil)
)
