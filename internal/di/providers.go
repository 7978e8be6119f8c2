package di

import (
	"context"
	"fmt"
	"time"

	"SignalPull/internal/chart"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	"SignalPull/internal/handler/api"
	"SignalPull/internal/repository"
	"SignalPull/internal/service/apify"
	"SignalPull/internal/service/binance"
	"SignalPull/internal/service/classifier"
	"SignalPull/internal/service/cluster"
	"SignalPull/internal/service/ratelimit"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/cache"
	pkgch "SignalPull/pkg/clickhouse"
	"SignalPull/pkg/config"
	xhttp "SignalPull/pkg/http"
	pkgkafka "SignalPull/pkg/kafka"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/metrics"
	"SignalPull/pkg/postgres"
	"SignalPull/pkg/queue"
	"SignalPull/pkg/server"
)

const schemaTimeout = 10 * time.Second

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lgr, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return lgr.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics registers the recorder on the default Prometheus registry.
func ProvideMetrics() drepo.Metrics {
	return metrics.New(nil)
}

// ProvidePostgresClient connects the signal store and optionally creates its schema.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, error) {
	pc := cfg.Postgres
	opts := []postgres.ClientOption{
		postgres.WithHost(pc.Host, pc.Port),
		postgres.WithDatabase(pc.Database),
		postgres.WithCredentials(pc.User, pc.Password),
		postgres.WithSSLMode(pc.SSLMode),
		postgres.WithPool(pc.MaxOpenConns, pc.MaxIdleConns, pc.ConnMaxLifetime),
	}
	if pc.DSN != "" {
		opts = append(opts, postgres.WithDSN(pc.DSN))
	}
	client, err := postgres.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	if !pc.InitSchema {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, repository.PostgresSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

func ProvideSignalStore(pg *postgres.Client, lgr *logger.Logger) drepo.SignalStore {
	return repository.NewPostgresSignalStore(pg.DB(), lgr)
}

func ProvideInfluencerStore(pg *postgres.Client) drepo.InfluencerStore {
	return repository.NewPostgresInfluencerStore(pg.DB())
}

// ProvideRedisCache returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc := cfg.Redis
	if !rc.Enabled {
		return nil, nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(rc.Host),
		cache.WithRedisPort(rc.Port),
		cache.WithRedisPassword(rc.Password),
		cache.WithRedisDB(rc.DB),
		cache.WithRedisPool(rc.PoolSize, rc.PoolSize/2, 30*time.Second),
		cache.WithRedisPrefix(rc.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideCache layers an in-process L1 over Redis, or falls back to memory only.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(5000), cache.WithMemoryCleanup(time.Minute))
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(cfg.Redis.L1TTL))
}

// ProvideClickHouseClient returns nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	cc := cfg.ClickHouse
	if !cc.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cc.Host),
		pkgch.WithPort(cc.Port),
		pkgch.WithDatabase(cc.Database),
		pkgch.WithCredentials(cc.User, cc.Password),
		pkgch.WithMaxConnections(cc.MaxConnections, cc.MaxConnections/2),
		pkgch.WithHTTP(cc.UseHTTP),
		pkgch.WithAsyncInsert(cc.AsyncInsert, false),
		pkgch.WithTimeouts(cc.DialTimeout, cc.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, repository.ClickHouseSchema(cc.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideSignalArchive(ch *pkgch.Client, lgr *logger.Logger) *repository.ClickHouseSignalArchive {
	if ch == nil {
		return nil
	}
	return repository.NewClickHouseSignalArchive(ch.DB(), ch.Database(), lgr)
}

// ProvideKafkaProducer returns nil when Kafka is disabled. When a digest topic is set the
// producer also ships aggregated error logs.
func ProvideKafkaProducer(cfg *config.Config, lgr *logger.Logger) (*pkgkafka.Producer, error) {
	kc := cfg.Kafka
	if !kc.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(kc.Brokers),
		pkgkafka.WithCompression(kc.Compression),
		pkgkafka.WithRequiredAcks(kc.RequiredAcks),
		pkgkafka.WithBatching(kc.Producer.BatchSize, kc.Producer.BatchBytes, kc.Producer.Linger),
		pkgkafka.WithTimeouts(kc.Producer.WriteTimeout, kc.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(kc.Producer.MaxAttempts),
		pkgkafka.WithAsync(kc.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if topic := cfg.Logging.DigestTopic; topic != "" {
		lgr.AddCollector(&logger.CollectionConfig{
			TimeInterval: cfg.Logging.DigestInterval,
			Topic:        topic,
			Publisher:    producer,
		})
	}
	return producer, nil
}

func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.SignalPublisher {
	if producer == nil {
		return repository.NopSignalPublisher{}
	}
	return repository.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer feeds saved-signal events into the archive. It is nil unless
// both Kafka and ClickHouse are enabled.
func ProvideKafkaConsumer(cfg *config.Config, lgr *logger.Logger, archive *repository.ClickHouseSignalArchive, m drepo.Metrics) (*pkgkafka.Consumer, error) {
	kc := cfg.Kafka
	if !kc.Enabled || archive == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(lgr,
		pkgkafka.WithConsumerBrokers(kc.Brokers),
		pkgkafka.WithConsumerGroupID(kc.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(kc.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(kc.Consumer.RetryMax, kc.Consumer.BackoffMin, kc.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(kc.Consumer.MinBytes, kc.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewSignalEventsHandler(kc.Topic, archive, m))
	return consumer, nil
}

func ProvideBinanceClient(cfg *config.Config) *binance.Client {
	return binance.New(
		binance.WithBaseURL(cfg.Binance.BaseURL),
		binance.WithCoinGeckoURL(cfg.CoinGecko.BaseURL),
		binance.WithSymbol(cfg.Binance.Symbol),
		binance.WithTimeout(cfg.Binance.Timeout),
	)
}

func ProvideMarket(c *binance.Client, cs cache.Service, cfg *config.Config) *binance.Cached {
	return binance.NewCached(c, cs, cfg.Binance.CandleTTL)
}

// ProvideLiveFeeds returns a factory; each chart timeframe gets its own stream.
func ProvideLiveFeeds(cfg *config.Config, lgr *logger.Logger) dservice.LiveFeedFactory {
	bc := cfg.Binance
	return func() dservice.LiveFeed {
		return binance.NewStream(lgr, bc.StreamURL, bc.Symbol, bc.PingInterval)
	}
}

func ProvidePostSource(cfg *config.Config) (dservice.PostSource, error) {
	ac := cfg.Apify
	cookies := make([]apify.Cookie, 0, len(ac.Cookies))
	for _, c := range ac.Cookies {
		cookies = append(cookies, apify.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path})
	}
	return apify.New(ac.Token,
		apify.WithBaseURL(ac.BaseURL),
		apify.WithActor(ac.Actor),
		apify.WithLanguage(ac.Language),
		apify.WithTimeout(ac.Timeout),
		apify.WithCookies(cookies),
	)
}

func ProvideClassifier(cfg *config.Config) (dservice.Classifier, error) {
	cc := cfg.Classifier
	return classifier.New(cc.APIKey,
		classifier.WithBaseURL(cc.BaseURL),
		classifier.WithModel(cc.Model),
		classifier.WithMaxTokens(cc.MaxTokens),
		classifier.WithTimeout(cc.Timeout),
		classifier.WithRetries(cc.Retries),
	)
}

func ProvidePipeline(
	cfg *config.Config,
	source dservice.PostSource,
	cls dservice.Classifier,
	prices dservice.PriceSource,
	signals drepo.SignalStore,
	influencers drepo.InfluencerStore,
	publisher drepo.SignalPublisher,
	m drepo.Metrics,
	lgr *logger.Logger,
) *usecase.CollectionPipeline {
	cc := cfg.Collector
	return usecase.NewCollectionPipeline(usecase.PipelineConfig{
		ItemDelay:      cc.ItemDelay,
		MinConfidence:  cc.MinConfidence,
		SampleSize:     cc.SampleSize,
		RecentMaxItems: cc.RecentMaxItems,
		DefaultLimit:   cc.DefaultLimit,
		Groups: usecase.AuthorGroups{
			Pool:      cc.Authors.Pool,
			Movers:    cc.Authors.Movers,
			Sentiment: cc.Authors.Sentiment,
			Chartists: cc.Authors.Chartists,
		},
	}, source, cls, prices, signals, influencers, publisher, m, nil, lgr)
}

// ProvideQueue uses Redis when it is configured so jobs survive restarts.
func ProvideQueue(cfg *config.Config, lgr *logger.Logger, rc *cache.RedisCache, job *usecase.ReverifyJob) queue.Worker {
	qc := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	if rc == nil {
		return queue.NewMemoryQueue(lgr, qc, job)
	}
	return queue.NewRedisQueue(lgr, qc, rc.Client(), []queue.Job{job}, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

func ProvideJobQueue(q queue.Worker) drepo.JobQueue { return q }

func ProvideScheduler(cfg *config.Config, pipeline *usecase.CollectionPipeline, locker cache.Service, lgr *logger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(pipeline, locker, cfg.Collector.ScheduleInterval, cfg.Collector.LockTTL, lgr)
}

func ProvideChartDeps(
	cfg *config.Config,
	market dservice.MarketData,
	signals drepo.SignalStore,
	feeds dservice.LiveFeedFactory,
	m drepo.Metrics,
	lgr *logger.Logger,
) chart.SessionDeps {
	cc := cfg.Chart
	return chart.SessionDeps{
		Market:  market,
		Signals: signals,
		Feeds:   feeds,
		Metrics: m,
		Logger:  lgr,
		Cluster: cluster.Options{YThreshold: cc.YThreshold, MinClusterSize: cc.MinClusterSize},
		Symbol:  cfg.Binance.Symbol,
		MaxRPS:  cc.MaxRPS,
		Backoff: chart.ExponentialPolicy(cc.ReconnectBase, cc.ReconnectMax, uint64(cc.MaxRetries)),
	}
}

func ProvideHandlers(
	cfg *config.Config,
	lgr *logger.Logger,
	pipeline *usecase.CollectionPipeline,
	signals drepo.SignalStore,
	jobs drepo.JobQueue,
	repricer *usecase.Repricer,
	perf *usecase.Performance,
	archive *repository.ClickHouseSignalArchive,
	market dservice.MarketData,
	chartDeps chart.SessionDeps,
) []xhttp.Handler {
	var stats api.StatsReader
	checks := map[string]api.HealthCheck{"postgres": signals.Health}
	if archive != nil {
		stats = archive
		checks["clickhouse"] = archive.Health
	}
	limiter := ratelimit.New(cfg.Server.CollectBurst, cfg.Server.CollectPerMinute/60)
	return []xhttp.Handler{
		api.NewHealthHandler(checks),
		api.NewCollectHandler(lgr, pipeline, limiter),
		api.NewSignalsHandler(lgr, signals, jobs, repricer, perf, stats),
		api.NewMarketHandler(lgr, market),
		api.NewChartHandler(lgr, chartDeps),
	}
}

func ProvideHTTPServer(cfg *config.Config, lgr *logger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	sc := cfg.Server
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts := []xhttp.ServerOption{
		xhttp.WithHost(sc.Host),
		xhttp.WithPort(sc.Port),
		xhttp.WithTimeouts(sc.ReadTimeout, sc.WriteTimeout, sc.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	}
	if len(sc.CORSOrigins) > 0 {
		opts = append(opts, xhttp.WithCORSOrigins(sc.CORSOrigins))
	}
	return xhttp.NewServer(lgr, handlers, opts...)
}

// ProvideResources lists the clients to close on shutdown; disabled ones are skipped.
func ProvideResources(cfg *config.Config, lgr *logger.Logger, pg *postgres.Client, rc *cache.RedisCache, ch *pkgch.Client, producer *pkgkafka.Producer) []server.Resource {
	res := []server.Resource{{Name: "postgres", Closer: pg}}
	if rc != nil {
		res = append(res, server.Resource{Name: "redis", Closer: rc})
	}
	if ch != nil {
		res = append(res, server.Resource{Name: "clickhouse", Closer: ch})
	}
	if producer != nil {
		res = append(res, server.Resource{Name: "kafka-producer", Closer: producer})
		if cfg.Logging.DigestTopic != "" {
			// closed first so the last digest still has a producer
			res = append(res, server.Resource{Name: "log-digest", Closer: closerFunc(func() error {
				lgr.RemoveCollector()
				return nil
			})})
		}
	}
	return res
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	srv *xhttp.Server,
	scheduler *usecase.Scheduler,
	q queue.Worker,
	consumer *pkgkafka.Consumer,
	resources []server.Resource,
) *server.App {
	return server.New(lgr, srv, scheduler, q, consumer, resources, cfg.Server.ShutdownTimeout)
}

// Collector is the one-shot CLI graph.
type Collector struct {
	Pipeline  *usecase.CollectionPipeline
	Repricer  *usecase.Repricer
	Logger    *logger.Logger
	Resources []server.Resource
}

func ProvideCollector(pipeline *usecase.CollectionPipeline, repricer *usecase.Repricer, lgr *logger.Logger, resources []server.Resource) *Collector {
	return &Collector{Pipeline: pipeline, Repricer: repricer, Logger: lgr, Resources: resources}
}

// Close releases clients in reverse order.
func (c *Collector) Close() {
	for i := len(c.Resources) - 1; i >= 0; i-- {
		if err := c.Resources[i].Close(); err != nil {
			c.Logger.Warn("Close failed", logger.String("resource", c.Resources[i].Name), logger.Error(err))
		}
	}
}
