package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	"SignalPull/internal/service/apify"
	"SignalPull/internal/service/extract"
	"SignalPull/pkg/logger"
)

// PipelineConfig tunes a CollectionPipeline.
type PipelineConfig struct {
	ItemDelay      time.Duration
	MinConfidence  int
	SampleSize     int
	RecentMaxItems int
	DefaultLimit   int
	Groups         AuthorGroups
}

func (c *PipelineConfig) withDefaults() {
	if c.ItemDelay < 0 {
		c.ItemDelay = 0
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 50
	}
	if c.SampleSize <= 0 {
		c.SampleSize = 40
	}
	if c.RecentMaxItems <= 0 {
		c.RecentMaxItems = 50
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 3
	}
}

// CollectionPipeline turns fetched posts into persisted signals: extract, classify,
// filter, resolve author, dedup, price, upsert. Items run sequentially.
type CollectionPipeline struct {
	cfg         PipelineConfig
	source      dservice.PostSource
	classifier  dservice.Classifier
	prices      dservice.PriceSource
	signals     drepo.SignalStore
	influencers drepo.InfluencerStore
	publisher   drepo.SignalPublisher
	metrics     drepo.Metrics
	lgr         *logger.Logger

	gate      *DedupGate
	extractor *extract.Extractor
	sampler   *Sampler
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewCollectionPipeline wires the pipeline; publisher may be nil.
func NewCollectionPipeline(
	cfg PipelineConfig,
	source dservice.PostSource,
	classifier dservice.Classifier,
	prices dservice.PriceSource,
	signals drepo.SignalStore,
	influencers drepo.InfluencerStore,
	publisher drepo.SignalPublisher,
	metrics drepo.Metrics,
	sampler *Sampler,
	lgr *logger.Logger,
) *CollectionPipeline {
	cfg.withDefaults()
	if sampler == nil {
		sampler = NewSampler(nil)
	}
	return &CollectionPipeline{
		cfg:         cfg,
		source:      source,
		classifier:  classifier,
		prices:      prices,
		signals:     signals,
		influencers: influencers,
		publisher:   publisher,
		metrics:     metrics,
		lgr:         lgr.With(logger.String("component", "collector")),
		gate:        NewDedupGate(signals),
		extractor:   extract.New(),
		sampler:     sampler,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ErrInvalidParams marks a run rejected before any I/O.
var ErrInvalidParams = errors.New("invalid run params")

// BuildQuery turns run params into the provider query.
func (p *CollectionPipeline) BuildQuery(params models.RunParams) (dservice.FetchQuery, error) {
	if !params.IsBackfill() {
		if params.Since != "" || params.Until != "" {
			return dservice.FetchQuery{}, errors.New("since and until must be given together")
		}
		handles := p.sampler.Take(p.cfg.Groups.Pool, p.cfg.SampleSize)
		if len(handles) == 0 {
			return dservice.FetchQuery{}, errors.New("author pool is empty")
		}
		return dservice.FetchQuery{
			SearchTerms: []string{apify.RecentQuery(handles)},
			MaxItems:    p.cfg.RecentMaxItems,
			Sort:        "Latest",
		}, nil
	}

	since, err := time.Parse(time.DateOnly, params.Since)
	if err != nil {
		return dservice.FetchQuery{}, fmt.Errorf("invalid since %q: %w", params.Since, err)
	}
	until, err := time.Parse(time.DateOnly, params.Until)
	if err != nil {
		return dservice.FetchQuery{}, fmt.Errorf("invalid until %q: %w", params.Until, err)
	}
	if !until.After(since) {
		return dservice.FetchQuery{}, fmt.Errorf("until %s must be after since %s", params.Until, params.Since)
	}
	handles, err := p.cfg.Groups.Resolve(params.AuthorGroup)
	if err != nil {
		return dservice.FetchQuery{}, err
	}
	limit := params.LimitPerAuthor
	if limit <= 0 {
		limit = p.cfg.DefaultLimit
	}
	return dservice.FetchQuery{
		SearchTerms: apify.BackfillQueries(handles, params.Since, params.Until),
		MaxItems:    limit * len(handles),
		Sort:        "Top",
	}, nil
}

// run holds per-run state.
type run struct {
	summary  *models.RunSummary
	backfill bool
	// handle -> sentiment of the author's previous post that passed the run check
	lastSentiment map[string]models.Sentiment
	currentPrice  *float64
}

// Run executes one collection. Only query, store or fetch failures before item
// processing are returned as errors; item failures land in the summary.
func (p *CollectionPipeline) Run(ctx context.Context, params models.RunParams) (*models.RunSummary, error) {
	summary := &models.RunSummary{Errors: []string{}, StartedAt: p.now().UTC()}
	start := time.Now()

	q, err := p.BuildQuery(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := p.signals.Health(ctx); err != nil {
		return nil, fmt.Errorf("signal store unavailable: %w", err)
	}

	items, err := p.source.Fetch(ctx, q)
	if err != nil {
		p.metrics.RecordError("fetch")
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	r := &run{summary: summary, backfill: params.IsBackfill(), lastSentiment: make(map[string]models.Sentiment)}
	first := true
	for _, it := range items {
		if extract.IsPlaceholder(it) {
			continue
		}
		if !first {
			if err := p.sleep(ctx, p.cfg.ItemDelay); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("run interrupted: %v", err))
				break
			}
		}
		first = false
		summary.Processed++
		p.processItem(ctx, r, it)
	}

	summary.FinishedAt = p.now().UTC()
	p.metrics.RecordLatency("collector_run", time.Since(start).Seconds())
	p.lgr.Info("collection run finished",
		logger.Bool("backfill", r.backfill),
		logger.Int("fetched", len(items)),
		logger.Int("processed", summary.Processed),
		logger.Int("saved", summary.Saved),
		logger.Int("skipped_url_duplicate", summary.SkippedURLDuplicate),
		logger.Int("skipped_same_person", summary.SkippedSamePersonDuplicate),
		logger.Int("skipped_neutral", summary.SkippedNeutral),
		logger.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

func (p *CollectionPipeline) fail(r *run, id, kind string, err error) {
	r.summary.Errors = append(r.summary.Errors, fmt.Sprintf("%s: %v", id, err))
	p.metrics.RecordError(kind)
	p.lgr.Warn("item failed", logger.String("item", id), logger.String("stage", kind), logger.Error(err))
}

func (p *CollectionPipeline) skip(reason string) {
	p.metrics.RecordSkip(reason)
}

func (p *CollectionPipeline) processItem(ctx context.Context, r *run, it extract.Item) {
	s := r.summary
	post := p.extractor.Extract(it)
	if strings.TrimSpace(post.Text) == "" {
		p.fail(r, post.ID, "extract", errors.New("no text"))
		return
	}

	cls, err := p.classifier.Classify(ctx, post.Text)
	if err != nil {
		p.fail(r, post.ID, "classify", err)
		return
	}
	if !cls.Sentiment.IsDirectional() {
		s.SkippedNeutral++
		p.skip("neutral")
		return
	}
	if cls.Confidence < p.cfg.MinConfidence {
		s.SkippedLowConfidence++
		s.SkippedNeutral++
		p.skip("low_confidence")
		return
	}

	ts := post.CreatedAt.Unix()
	if r.backfill {
		handle := strings.ToLower(post.Handle)
		if r.lastSentiment[handle] == cls.Sentiment {
			s.SkippedSamePersonDuplicate++
			p.skip("same_person_run")
			return
		}
		r.lastSentiment[handle] = cls.Sentiment
	}

	inf, err := p.resolveInfluencer(ctx, post)
	if err != nil {
		p.fail(r, post.ID, "influencer", err)
		return
	}

	decision, err := p.gate.Check(ctx, Candidate{
		SourceURL:    post.URL,
		InfluencerID: inf.ID,
		Sentiment:    cls.Sentiment,
		Timestamp:    ts,
	})
	if err != nil {
		p.fail(r, post.ID, "dedup", err)
		return
	}
	switch decision {
	case RejectURLDuplicate:
		s.SkippedURLDuplicate++
		p.skip(decision.String())
		return
	case RejectAuthorWindowDuplicate:
		s.SkippedSamePersonDuplicate++
		p.skip(decision.String())
		return
	}

	price, src := p.resolvePrice(ctx, r, ts)

	now := p.now().UTC()
	sig := &models.Signal{
		InfluencerID:    inf.ID,
		Sentiment:       cls.Sentiment,
		Confidence:      cls.Confidence,
		EntryPrice:      price,
		PriceSource:     src,
		SignalTimestamp: ts,
		SourceURL:       post.URL,
		OriginalText:    post.Text,
		Summary:         cls.Summary,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	id, err := p.signals.Upsert(ctx, sig)
	if err != nil {
		p.fail(r, post.ID, "persist", err)
		return
	}
	sig.ID = id
	s.Saved++
	p.metrics.RecordSignalSaved(string(sig.Sentiment))

	p.lgr.Info("signal saved",
		logger.String("id", id),
		logger.String("handle", post.Handle),
		logger.String("sentiment", string(sig.Sentiment)),
		logger.Int("confidence", sig.Confidence),
		logger.Float64("entry_price", price),
		logger.String("price_source", string(src)),
	)
	p.publish(ctx, sig, post.Handle, now)
}

func (p *CollectionPipeline) resolveInfluencer(ctx context.Context, post models.Post) (*models.Influencer, error) {
	inf, err := p.influencers.GetByHandle(ctx, post.Handle)
	if err == nil {
		return inf, nil
	}
	if !errors.Is(err, drepo.ErrNotFound) {
		return nil, fmt.Errorf("lookup %s: %w", post.Handle, err)
	}
	inf = &models.Influencer{
		TwitterHandle:   post.Handle,
		DisplayName:     post.DisplayName,
		ProfileImageURL: post.AvatarURL,
		IsActive:        true,
	}
	id, err := p.influencers.Create(ctx, inf)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", post.Handle, err)
	}
	inf.ID = id
	return inf, nil
}

// resolvePrice prefers the historical price at ts and falls back to the current price,
// fetched once per run. When neither is available the signal is still saved with a zero
// fallback price for the repricer to fill in later.
func (p *CollectionPipeline) resolvePrice(ctx context.Context, r *run, ts int64) (float64, models.PriceSource) {
	price, ok, err := p.prices.HistoricalPrice(ctx, ts)
	if err == nil && ok {
		return price, models.PriceHistorical
	}
	if err != nil {
		p.lgr.Debug("historical price failed", logger.Int64("ts", ts), logger.Error(err))
	}
	if r.currentPrice == nil {
		cur, err := p.prices.CurrentPrice(ctx)
		if err != nil {
			p.metrics.RecordError("price")
			p.lgr.Warn("current price unavailable, saving unpriced signal", logger.Int64("ts", ts), logger.Error(err))
			return 0, models.PriceFallback
		}
		r.currentPrice = &cur
		p.metrics.RecordLastPrice("BTCUSDT", cur)
	}
	return *r.currentPrice, models.PriceFallback
}

func (p *CollectionPipeline) publish(ctx context.Context, sig *models.Signal, handle string, at time.Time) {
	if p.publisher == nil {
		return
	}
	ev := &models.SignalEvent{
		SignalID:        sig.ID,
		InfluencerID:    sig.InfluencerID,
		Handle:          handle,
		Sentiment:       sig.Sentiment,
		Confidence:      sig.Confidence,
		EntryPrice:      sig.EntryPrice,
		PriceSource:     sig.PriceSource,
		SignalTimestamp: sig.SignalTimestamp,
		SourceURL:       sig.SourceURL,
		SavedAt:         at.Unix(),
	}
	if err := p.publisher.PublishSaved(ctx, ev); err != nil {
		p.metrics.RecordError("publish")
		p.lgr.Warn("publish saved signal failed", logger.String("id", sig.ID), logger.Error(err))
	}
}
