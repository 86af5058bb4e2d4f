package di

import (
	"context"
	"fmt"
	"time"

	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/handler/api"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/service/finnhub"
	"FinCast/internal/service/marketdata"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/server"
)

// Caches holds the bar cache and the portfolio store. With redis both may
// share one client.
type Caches struct {
	Prices    cache.Service
	Portfolio cache.Service
	owned     []cache.Service
}

// Close releases the underlying clients once each.
func (c *Caches) Close() error {
	if c == nil {
		return nil
	}
	var err error
	for _, s := range c.owned {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCaches builds the caches selected by cache.type. The layered bar
// cache sits in front of redis; the portfolio always goes straight to the
// backing store.
func ProvideCaches(cfg *config.Config) (*Caches, error) {
	switch cfg.Cache.Type {
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Type == "redis" {
			return &Caches{Prices: rc, Portfolio: rc, owned: []cache.Service{rc}}, nil
		}
		layered := cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Cache.Capacity),
			cache.WithLayeredMemoryTTL(min(cfg.Cache.TTL, 5*time.Minute)),
		)
		// closing the layered cache closes rc as well
		return &Caches{Prices: layered, Portfolio: rc, owned: []cache.Service{layered}}, nil
	default:
		prices := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.Capacity))
		portfolio := cache.NewMemoryCache(cache.WithMemoryMaxSize(10000), cache.WithMemoryDefaultTTL(0))
		return &Caches{Prices: prices, Portfolio: portfolio, owned: []cache.Service{prices, portfolio}}, nil
	}
}

// ProvideClickHouseClient creates a ClickHouse client and the bar table, or
// returns nil when the store is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.PriceStoreSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePriceProvider chains the EOD API, the ClickHouse store (if any) and
// the bar cache.
func ProvidePriceProvider(cfg *config.Config, l *applogger.Logger, ch *pkgch.Client, caches *Caches) domrepo.PriceProvider {
	httpClient := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Provider.Timeout),
		xhttp.WithRateLimit(cfg.Provider.RateLimit, max(int(cfg.Provider.RateLimit), 1)),
		xhttp.WithRetry(cfg.Provider.RetryMax, 250*time.Millisecond),
	)
	var p domrepo.PriceProvider = marketdata.NewEODProvider(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		cfg.Provider.Exchange,
		marketdata.WithClient(httpClient),
		marketdata.WithLogger(l),
	)
	if ch != nil {
		p = internalrepo.NewStoredProvider(internalrepo.NewCHPriceStore(ch, l), p, l)
	}
	return internalrepo.NewCachedProvider(caches.Prices, p, cfg.Cache.TTL, l)
}

// ProvideQuoteSource returns the Finnhub live quote client, or nil.
func ProvideQuoteSource(cfg *config.Config, l *applogger.Logger) domrepo.QuoteSource {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.WebSocketURL, cfg.Finnhub.QuoteWait, finnhub.WithLogger(l))
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(-1),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatch(1, 10*time.Millisecond),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher publishes finished runs to the result topic.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic)
}

// ProvidePortfolioRepository stores assets in the portfolio cache.
func ProvidePortfolioRepository(caches *Caches) domrepo.PortfolioRepository {
	return internalrepo.NewCachePortfolioRepository(caches.Portfolio)
}

// ProvideSimulationUseCase creates the Monte Carlo use case.
func ProvideSimulationUseCase(
	cfg *config.Config,
	provider domrepo.PriceProvider,
	repo domrepo.PortfolioRepository,
	pub domrepo.ResultPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.SimulationUseCase {
	s := cfg.Simulation
	return usecase.NewSimulationUseCase(usecase.SimulationSettings{
		TrainingPeriod:     domrepo.Period(s.TrainingPeriod),
		RecentPeriod:       domrepo.Period(s.RecentPeriod),
		ValidationFraction: s.ValidationFraction,
		VolWindow:          s.VolWindow,
		BufferLen:          s.BufferLen,
		NoiseScale:         s.NoiseScale,
		NoiseCap:           s.NoiseCap,
		DisableNoise:       s.NoiseDisabled,
		PriceFloor:         s.PriceFloor,
		RidgeLambda:        s.RidgeLambda,
		Workers:            s.Workers,
		FetchWorkers:       s.FetchWorkers,
		MaxPaths:           s.MaxPaths,
		Timeout:            s.Timeout,
	}, provider, repo, pub, m, l)
}

// ProvidePortfolioUseCase creates the portfolio bookkeeping use case.
func ProvidePortfolioUseCase(
	cfg *config.Config,
	repo domrepo.PortfolioRepository,
	provider domrepo.PriceProvider,
	quotes domrepo.QuoteSource,
	l *applogger.Logger,
) *usecase.PortfolioUseCase {
	return usecase.NewPortfolioUseCase(repo, provider, quotes, domrepo.Period(cfg.Provider.VerifyPeriod), cfg.Simulation.FetchWorkers, l)
}

// ProvideHistoryUseCase creates the price history use case.
func ProvideHistoryUseCase(provider domrepo.PriceProvider) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(provider)
}

// ProvideKafkaConsumer creates the request consumer, or nil when Kafka is off.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerRetry(2, 200*time.Millisecond, 5*time.Second),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.RequestTopic+".dlq"),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSimulationHandler handles the request topic.
func ProvideKafkaSimulationHandler(
	cfg *config.Config,
	uc *usecase.SimulationUseCase,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.KafkaSimulationHandler {
	return usecase.NewKafkaSimulationHandler(cfg.Kafka.RequestTopic, uc, m, l)
}

// ProvideForecastHandler exposes the use cases over HTTP.
func ProvideForecastHandler(
	l *applogger.Logger,
	sim *usecase.SimulationUseCase,
	portfolio *usecase.PortfolioUseCase,
	history *usecase.HistoryUseCase,
) *api.ForecastEchoHandler {
	return api.NewForecastEchoHandler(l, sim, portfolio, history)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	h *api.ForecastEchoHandler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSimulationHandler,
	pub domrepo.ResultPublisher,
	ch *pkgch.Client,
	caches *Caches,
) *server.App {
	opts := []server.Option{
		server.WithLimiter(ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateBurst)),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, kh))
	}
	if pub != nil {
		opts = append(opts, server.WithClosers(server.Closer{Name: "kafka producer", Closer: pub}))
	}
	if ch != nil {
		opts = append(opts, server.WithClosers(server.Closer{Name: "clickhouse", Closer: ch}))
	}
	opts = append(opts, server.WithClosers(server.Closer{Name: "cache", Closer: caches}))
	return server.New(cfg, l, h, opts...)
}
