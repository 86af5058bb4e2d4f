//go:build wireinject
// +build wireinject

package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCaches,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories and external sources
		ProvidePriceProvider,
		ProvideQuoteSource,
		ProvideResultPublisher,
		ProvidePortfolioRepository,

		// Use cases
		ProvideSimulationUseCase,
		ProvidePortfolioUseCase,
		ProvideHistoryUseCase,
		ProvideKafkaSimulationHandler,

		// Transport and application server
		ProvideForecastHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeCLI wires the use cases without the server or Kafka.
func InitializeCLI(cfg *config.Config) (*CLI, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCaches,
		ProvideClickHouseClient,
		ProvidePriceProvider,
		ProvideQuoteSource,
		ProvidePortfolioRepository,
		ProvideNoPublisher,
		ProvideSimulationUseCase,
		ProvidePortfolioUseCase,
		ProvideHistoryUseCase,
		ProvideCLI,
	)
	return nil, nil, nil
}
