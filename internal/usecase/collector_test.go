package usecase

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"SignalPull/internal/domain/models"
	"SignalPull/pkg/logger"
)

type pipelineFixture struct {
	source     *fakeSource
	classifier *fakeClassifier
	prices     *fakePrices
	store      *memStore
	infl       *memInfluencers
	pub        *fakePublisher
	metrics    *nopMetrics
	sleeps     []time.Duration
	p          *CollectionPipeline
}

func newFixture(t *testing.T, groups AuthorGroups) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		source:     &fakeSource{},
		classifier: &fakeClassifier{byText: map[string]models.Classification{}},
		prices:     &fakePrices{historical: map[int64]float64{}, current: 70000},
		store:      newMemStore(),
		infl:       newMemInfluencers(),
		pub:        &fakePublisher{},
		metrics:    newNopMetrics(),
	}
	f.p = NewCollectionPipeline(
		PipelineConfig{ItemDelay: 500 * time.Millisecond, Groups: groups},
		f.source, f.classifier, f.prices, f.store, f.infl, f.pub, f.metrics,
		NewSampler(rand.New(rand.NewSource(1))), logger.Nop(),
	)
	f.p.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }
	f.p.sleep = func(_ context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return f
}

func tweet(id, handle, text, createdAt string) map[string]interface{} {
	return map[string]interface{}{
		"id":         id,
		"text":       text,
		"created_at": createdAt,
		"author":     map[string]interface{}{"userName": handle, "name": strings.ToUpper(handle)},
	}
}

func unix(s string) int64 {
	t, _ := time.Parse(time.RFC3339, s)
	return t.Unix()
}

func defaultGroups() AuthorGroups {
	pool := make([]string, 100)
	for i := range pool {
		pool[i] = "h" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	return AuthorGroups{
		Pool:      pool,
		Movers:    []string{"saylor", "jack"},
		Sentiment: []string{"rektcapital"},
		Chartists: []string{"PeterLBrandt"},
	}
}

func TestRunFiltersAndPersists(t *testing.T) {
	f := newFixture(t, defaultGroups())
	f.source.items = []map[string]interface{}{
		tweet("1", "saylor", "buy btc", "2024-03-01T10:00:00Z"),
		tweet("2", "saylor", "whatever", "2024-03-01T11:00:00Z"),
		tweet("3", "jack", "weak short", "2024-03-01T12:00:00Z"),
		tweet("4", "jack", "borderline long", "2024-03-01T13:00:00Z"),
		{"id": "5", "author": map[string]interface{}{"userName": "jack"}},
		tweet("6", "jack", "garbage", "2024-03-01T15:00:00Z"),
		{"noResults": true},
	}
	f.classifier.byText = map[string]models.Classification{
		"buy btc":         {Sentiment: models.SentimentLong, Confidence: 80, Summary: "bullish"},
		"whatever":        {Sentiment: models.SentimentNeutral, Confidence: 90},
		"weak short":      {Sentiment: models.SentimentShort, Confidence: 49},
		"borderline long": {Sentiment: models.SentimentLong, Confidence: 50},
	}
	f.prices.historical[unix("2024-03-01T10:00:00Z")] = 62000

	sum, err := f.p.Run(context.Background(), models.RunParams{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if sum.Processed != 6 {
		t.Errorf("processed = %d, want 6 (placeholder excluded)", sum.Processed)
	}
	if sum.Saved != 2 {
		t.Errorf("saved = %d, want 2", sum.Saved)
	}
	if sum.SkippedNeutral != 2 || sum.SkippedLowConfidence != 1 {
		t.Errorf("neutral = %d lowConfidence = %d", sum.SkippedNeutral, sum.SkippedLowConfidence)
	}
	if len(sum.Errors) != 2 {
		t.Fatalf("errors = %v", sum.Errors)
	}
	if !strings.HasPrefix(sum.Errors[0], "5: ") || !strings.HasPrefix(sum.Errors[1], "6: ") {
		t.Errorf("errors should be keyed by item id: %v", sum.Errors)
	}
	if len(f.sleeps) != 5 {
		t.Errorf("sleeps = %d, want one between each of 6 items", len(f.sleeps))
	}
	if f.prices.curCalls != 1 {
		t.Errorf("current price fetched %d times", f.prices.curCalls)
	}

	saved := f.store.all()
	if saved[0].EntryPrice != 62000 || saved[0].PriceSource != models.PriceHistorical {
		t.Errorf("first signal priced %v/%s", saved[0].EntryPrice, saved[0].PriceSource)
	}
	if saved[1].EntryPrice != 70000 || saved[1].PriceSource != models.PriceFallback {
		t.Errorf("second signal priced %v/%s", saved[1].EntryPrice, saved[1].PriceSource)
	}
	saylor, err := f.infl.GetByHandle(context.Background(), "saylor")
	if err != nil || saylor.DisplayName != "SAYLOR" {
		t.Fatalf("influencer not created from post author: %+v %v", saylor, err)
	}
	if saved[0].SourceURL != "https://twitter.com/saylor/status/1" || saved[0].InfluencerID != saylor.ID {
		t.Errorf("unexpected signal %+v", saved[0])
	}
	if len(f.pub.events) != 2 || f.pub.events[0].Handle != "saylor" {
		t.Errorf("published %d events", len(f.pub.events))
	}

	q := f.source.got[0]
	if q.Sort != "Latest" || q.MaxItems != 50 || len(q.SearchTerms) != 1 {
		t.Fatalf("unexpected recent query %+v", q)
	}
	if n := strings.Count(q.SearchTerms[0], "from:"); n != 40 {
		t.Errorf("recent query samples %d authors, want 40", n)
	}
}

func TestRunURLDuplicateKeepsOneSignal(t *testing.T) {
	f := newFixture(t, defaultGroups())
	f.source.items = []map[string]interface{}{tweet("1", "saylor", "buy btc", "2024-03-01T10:00:00Z")}
	f.classifier.byText["buy btc"] = models.Classification{Sentiment: models.SentimentLong, Confidence: 80}

	for i := 0; i < 2; i++ {
		if _, err := f.p.Run(context.Background(), models.RunParams{}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	sum, _ := f.p.Run(context.Background(), models.RunParams{})
	if sum.SkippedURLDuplicate != 1 || sum.Saved != 0 {
		t.Fatalf("summary %+v", sum)
	}
	if n := len(f.store.all()); n != 1 {
		t.Fatalf("stored %d signals", n)
	}
}

func TestRunAuthorWindow(t *testing.T) {
	f := newFixture(t, defaultGroups())
	f.source.items = []map[string]interface{}{
		tweet("1", "saylor", "long a", "2024-03-01T10:00:00Z"),
		tweet("2", "saylor", "long b", "2024-03-01T11:00:00Z"),
		tweet("3", "saylor", "short c", "2024-03-01T11:00:00Z"),
		tweet("4", "saylor", "long d", "2024-03-03T10:00:00Z"),
	}
	f.classifier.byText = map[string]models.Classification{
		"long a":  {Sentiment: models.SentimentLong, Confidence: 70},
		"long b":  {Sentiment: models.SentimentLong, Confidence: 70},
		"short c": {Sentiment: models.SentimentShort, Confidence: 70},
		"long d":  {Sentiment: models.SentimentLong, Confidence: 70},
	}

	sum, err := f.p.Run(context.Background(), models.RunParams{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Saved != 3 || sum.SkippedSamePersonDuplicate != 1 {
		t.Fatalf("summary %+v", sum)
	}
	if f.metrics.skips["author_window_duplicate"] != 1 {
		t.Fatalf("recent mode should reject via the stored window, skips=%v", f.metrics.skips)
	}
}

func TestBackfillQueryAndParrotDedup(t *testing.T) {
	f := newFixture(t, defaultGroups())
	f.source.items = []map[string]interface{}{
		tweet("1", "saylor", "long a", "2024-03-01T10:00:00Z"),
		tweet("2", "Saylor", "long b", "2024-03-01T12:00:00Z"),
	}
	f.classifier.byText = map[string]models.Classification{
		"long a": {Sentiment: models.SentimentLong, Confidence: 70},
		"long b": {Sentiment: models.SentimentLong, Confidence: 70},
	}

	sum, err := f.p.Run(context.Background(), models.RunParams{Since: "2024-03-01", Until: "2024-03-05", LimitPerAuthor: 5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Saved != 1 || sum.SkippedSamePersonDuplicate != 1 {
		t.Fatalf("summary %+v", sum)
	}
	if f.metrics.skips["same_person_run"] != 1 {
		t.Fatalf("backfill should reject in-run repeats first, skips=%v", f.metrics.skips)
	}

	q := f.source.got[0]
	if q.Sort != "Top" || q.MaxItems != 15 || len(q.SearchTerms) != 3 {
		t.Fatalf("unexpected backfill query %+v", q)
	}
	if q.SearchTerms[0] != "(from:saylor) (Bitcoin OR BTC) since:2024-03-01 until:2024-03-05" {
		t.Fatalf("term = %q", q.SearchTerms[0])
	}
}

func TestBackfillRepeatSkippedRegardlessOfGap(t *testing.T) {
	f := newFixture(t, defaultGroups())
	f.source.items = []map[string]interface{}{
		tweet("1", "saylor", "long a", "2024-03-01T10:00:00Z"),
		tweet("2", "saylor", "long b", "2024-03-04T12:00:00Z"),
	}
	f.classifier.byText = map[string]models.Classification{
		"long a": {Sentiment: models.SentimentLong, Confidence: 70},
		"long b": {Sentiment: models.SentimentLong, Confidence: 70},
	}

	sum, err := f.p.Run(context.Background(), models.RunParams{Since: "2024-03-01", Until: "2024-03-05"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Saved != 1 || sum.SkippedSamePersonDuplicate != 1 || f.metrics.skips["same_person_run"] != 1 {
		t.Fatalf("summary %+v skips=%v", sum, f.metrics.skips)
	}
}

func TestBackfillRepeatComparesPreviousPostOnly(t *testing.T) {
	f := newFixture(t, defaultGroups())
	f.source.items = []map[string]interface{}{
		tweet("1", "saylor", "long a", "2024-03-01T10:00:00Z"),
		tweet("2", "saylor", "short b", "2024-03-03T10:00:00Z"),
		tweet("3", "saylor", "long c", "2024-03-05T10:00:00Z"),
	}
	f.classifier.byText = map[string]models.Classification{
		"long a":  {Sentiment: models.SentimentLong, Confidence: 70},
		"short b": {Sentiment: models.SentimentShort, Confidence: 70},
		"long c":  {Sentiment: models.SentimentLong, Confidence: 70},
	}

	sum, err := f.p.Run(context.Background(), models.RunParams{Since: "2024-03-01", Until: "2024-03-06"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Saved != 3 || sum.SkippedSamePersonDuplicate != 0 {
		t.Fatalf("summary %+v", sum)
	}
}

func TestRunSavesWhenNoPriceAvailable(t *testing.T) {
	f := newFixture(t, defaultGroups())
	f.source.items = []map[string]interface{}{tweet("1", "saylor", "buy btc", "2024-03-01T10:00:00Z")}
	f.classifier.byText["buy btc"] = models.Classification{Sentiment: models.SentimentLong, Confidence: 80}
	f.prices.histErr = errors.New("binance down")
	f.prices.curErr = errors.New("binance down")

	sum, err := f.p.Run(context.Background(), models.RunParams{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Saved != 1 || len(sum.Errors) != 0 {
		t.Fatalf("summary %+v", sum)
	}
	if s := f.store.all()[0]; s.EntryPrice != 0 || s.PriceSource != models.PriceFallback {
		t.Fatalf("signal priced %v/%s", s.EntryPrice, s.PriceSource)
	}
}

func TestBuildQueryValidation(t *testing.T) {
	f := newFixture(t, defaultGroups())
	bad := []models.RunParams{
		{Since: "2024-03-01"},
		{Since: "2024-03-05", Until: "2024-03-01"},
		{Since: "03/01/2024", Until: "2024-03-05"},
		{Since: "2024-03-01", Until: "2024-03-05", AuthorGroup: "nobody"},
	}
	for _, p := range bad {
		if _, err := f.p.BuildQuery(p); err == nil {
			t.Errorf("%+v: expected error", p)
		}
	}
	q, err := f.p.BuildQuery(models.RunParams{Since: "2024-03-01", Until: "2024-03-05", AuthorGroup: "all"})
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if q.MaxItems != 3*4 {
		t.Fatalf("default limit per author not applied: %d", q.MaxItems)
	}
}

func TestRunFatalErrors(t *testing.T) {
	f := newFixture(t, defaultGroups())
	f.source.err = errors.New("actor failed")
	if _, err := f.p.Run(context.Background(), models.RunParams{}); err == nil || !strings.Contains(err.Error(), "actor failed") {
		t.Fatalf("fetch failure should abort: %v", err)
	}

	f = newFixture(t, defaultGroups())
	f.store.healthErr = errors.New("connection refused")
	if _, err := f.p.Run(context.Background(), models.RunParams{}); err == nil {
		t.Fatal("store failure should abort")
	}
	if len(f.source.got) != 0 {
		t.Fatal("fetch must not run when the store is down")
	}
}

func TestRunReusesExistingInfluencer(t *testing.T) {
	f := newFixture(t, defaultGroups())
	id, _ := f.infl.Create(context.Background(), &models.Influencer{TwitterHandle: "saylor"})
	f.source.items = []map[string]interface{}{tweet("1", "saylor", "buy btc", "2024-03-01T10:00:00Z")}
	f.classifier.byText["buy btc"] = models.Classification{Sentiment: models.SentimentLong, Confidence: 80}

	if _, err := f.p.Run(context.Background(), models.RunParams{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := f.store.all()[0].InfluencerID; got != id {
		t.Fatalf("influencer = %s, want %s", got, id)
	}
}
