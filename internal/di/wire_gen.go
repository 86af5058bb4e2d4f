//go:build !wireinject
// +build !wireinject

// Injector bodies for the provider sets in wire.go, kept in step by hand.

package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	caches, err := ProvideCaches(cfg)
	if err != nil {
		return nil, err
	}
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	priceProvider := ProvidePriceProvider(cfg, logger, client, caches)
	portfolioRepository := ProvidePortfolioRepository(caches)
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	resultPublisher := ProvideResultPublisher(producer, cfg)
	metrics := ProvideMetrics()
	simulationUseCase := ProvideSimulationUseCase(cfg, priceProvider, portfolioRepository, resultPublisher, metrics, logger)
	quoteSource := ProvideQuoteSource(cfg, logger)
	portfolioUseCase := ProvidePortfolioUseCase(cfg, portfolioRepository, priceProvider, quoteSource, logger)
	historyUseCase := ProvideHistoryUseCase(priceProvider)
	forecastEchoHandler := ProvideForecastHandler(logger, simulationUseCase, portfolioUseCase, historyUseCase)
	consumer, err := ProvideKafkaConsumer(cfg, logger)
	if err != nil {
		return nil, err
	}
	kafkaSimulationHandler := ProvideKafkaSimulationHandler(cfg, simulationUseCase, metrics, logger)
	app := ProvideApp(cfg, logger, forecastEchoHandler, consumer, kafkaSimulationHandler, resultPublisher, client, caches)
	return app, nil
}

// InitializeCLI wires the use cases without the server or Kafka.
func InitializeCLI(cfg *config.Config) (*CLI, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	caches, err := ProvideCaches(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	priceProvider := ProvidePriceProvider(cfg, logger, client, caches)
	portfolioRepository := ProvidePortfolioRepository(caches)
	resultPublisher := ProvideNoPublisher()
	metrics := ProvideMetrics()
	simulationUseCase := ProvideSimulationUseCase(cfg, priceProvider, portfolioRepository, resultPublisher, metrics, logger)
	quoteSource := ProvideQuoteSource(cfg, logger)
	portfolioUseCase := ProvidePortfolioUseCase(cfg, portfolioRepository, priceProvider, quoteSource, logger)
	historyUseCase := ProvideHistoryUseCase(priceProvider)
	cli, cleanup := ProvideCLI(logger, simulationUseCase, portfolioUseCase, historyUseCase, client, caches)
	return cli, func() {
		cleanup()
	}, nil
}
