//go:build wireinject
// +build wireinject

package di

import (
	dservice "SignalPull/internal/domain/service"
	"SignalPull/internal/service/binance"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/config"
	"SignalPull/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvidePostgresClient,
	ProvideRedisCache,
	ProvideCache,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
	ProvideResources,
)

var repositorySet = wire.NewSet(
	ProvideSignalStore,
	ProvideInfluencerStore,
	ProvideSignalPublisher,
)

var serviceSet = wire.NewSet(
	ProvideBinanceClient,
	ProvideMarket,
	wire.Bind(new(dservice.PriceSource), new(*binance.Cached)),
	wire.Bind(new(dservice.MarketData), new(*binance.Cached)),
	ProvidePostSource,
	ProvideClassifier,
)

var collectorSet = wire.NewSet(
	ProvidePipeline,
	usecase.NewRepricer,
)

// InitializeApp wires the long-running service.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		repositorySet,
		serviceSet,
		collectorSet,
		ProvideSignalArchive,
		ProvideLiveFeeds,
		usecase.NewPerformance,
		usecase.NewReverifier,
		usecase.NewReverifyJob,
		ProvideQueue,
		ProvideJobQueue,
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvideChartDeps,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeCollector wires the one-shot collection CLI.
func InitializeCollector(cfg *config.Config) (*Collector, error) {
	wire.Build(
		infraSet,
		repositorySet,
		serviceSet,
		collectorSet,
		ProvideCollector,
	)
	return &Collector{}, nil
}
