package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/services/features"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/regression"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SimulationSettings are the run-independent knobs of the forecasting pipeline.
type SimulationSettings struct {
	TrainingPeriod     domrepo.Period
	RecentPeriod       domrepo.Period
	ValidationFraction float64
	VolWindow          int
	BufferLen          int
	NoiseScale         float64
	NoiseCap           float64
	DisableNoise       bool
	PriceFloor         float64
	RidgeLambda        float64
	Workers            int
	FetchWorkers       int
	MaxPaths           int
	Timeout            time.Duration
}

// ParamsFromRequest maps a validated request onto SimulateParams.
func ParamsFromRequest(req *models.SimulationRequest) SimulateParams {
	return SimulateParams{
		RequestID:    req.RequestID,
		Holdings:     req.HoldingList(),
		Simulations:  req.Simulations,
		Years:        req.Years,
		Lookback:     req.Lookback,
		Seed:         req.Seed,
		Method:       req.Method,
		IncludePaths: req.IncludePaths,
	}
}

// SimulateParams describes one run. Empty Holdings means the stored portfolio.
type SimulateParams struct {
	RequestID    string
	Holdings     []models.Holding
	Simulations  int
	Years        float64
	Lookback     int
	Seed         uint64
	Method       string
	IncludePaths bool
}

// SimulationUseCase fetches history, trains per-asset models and runs the
// Monte Carlo simulation.
type SimulationUseCase struct {
	settings  SimulationSettings
	provider  domrepo.PriceProvider
	portfolio domrepo.PortfolioRepository
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
}

// NewSimulationUseCase creates the use case. publisher may be nil.
func NewSimulationUseCase(
	settings SimulationSettings,
	provider domrepo.PriceProvider,
	portfolio domrepo.PortfolioRepository,
	publisher domrepo.ResultPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *SimulationUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if !domrepo.IsValidPeriod(settings.TrainingPeriod) {
		settings.TrainingPeriod = domrepo.Period10y
	}
	if !domrepo.IsValidPeriod(settings.RecentPeriod) {
		settings.RecentPeriod = domrepo.Period2y
	}
	if settings.FetchWorkers <= 0 {
		settings.FetchWorkers = 4
	}
	if settings.MaxPaths <= 0 {
		settings.MaxPaths = 100000
	}
	switch {
	case settings.DisableNoise:
		settings.NoiseScale, settings.NoiseCap = 0, 0
	case settings.NoiseScale == 0 && settings.NoiseCap == 0:
		settings.NoiseScale, settings.NoiseCap = forecast.DefaultNoiseScale, forecast.DefaultNoiseCap
	}
	return &SimulationUseCase{
		settings:  settings,
		provider:  provider,
		portfolio: portfolio,
		publisher: publisher,
		metrics:   metrics,
		l:         l,
		now:       time.Now,
	}
}

func (uc *SimulationUseCase) validate(p *SimulateParams) error {
	if p.Method == "" {
		p.Method = models.MethodRegression
	}
	switch {
	case p.Simulations < 1 || p.Simulations > uc.settings.MaxPaths:
		return fmt.Errorf("%w: simulations must be in [1, %d]", forecast.ErrInvalidParams, uc.settings.MaxPaths)
	case !(p.Years > 0):
		return fmt.Errorf("%w: years must be positive", forecast.ErrInvalidParams)
	case p.Method == models.MethodRegression && p.Lookback < 1:
		return fmt.Errorf("%w: lookback must be positive", forecast.ErrInvalidParams)
	case p.Method != models.MethodRegression && p.Method != models.MethodGaussian:
		return fmt.Errorf("%w: unknown method %q", forecast.ErrInvalidParams, p.Method)
	}
	for _, h := range p.Holdings {
		if util.NormalizeTicker(h.Ticker) == "" || h.Quantity < 0 {
			return fmt.Errorf("%w: bad holding %q", forecast.ErrInvalidParams, h.Ticker)
		}
	}
	return nil
}

// Simulate runs one simulation. Assets without data or without a trainable
// model degrade to exclusion or forward-fill and are listed in Fallbacks.
func (uc *SimulationUseCase) Simulate(ctx context.Context, p SimulateParams) (*models.SimulationResult, error) {
	start := time.Now()
	if err := uc.validate(&p); err != nil {
		uc.metrics.RecordError("simulation_params")
		return nil, err
	}
	if uc.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.settings.Timeout)
		defer cancel()
	}

	holdings, err := uc.holdings(ctx, p.Holdings)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, forecast.ErrEmptyPortfolio
	}

	histories, fallbacks, err := uc.fetchHistories(ctx, holdings)
	if err != nil {
		return nil, err
	}

	in := forecast.SimulationInput{
		Holdings:  holdings,
		Histories: histories,
		Paths:     p.Simulations,
		Steps:     util.TradingDays(p.Years, features.TradingDaysPerYear),
		Seed:      p.Seed,
	}

	var res *models.SimulationResult
	if p.Method == models.MethodGaussian {
		res, err = forecast.NewGaussianSimulator(uc.settings.Workers, uc.l).Run(ctx, in)
	} else {
		res, err = uc.runRegression(ctx, p.Lookback, in, &fallbacks)
	}
	if err != nil {
		uc.metrics.RecordError("simulation_" + p.Method)
		return nil, err
	}

	sort.Slice(fallbacks, func(i, j int) bool { return fallbacks[i].Ticker < fallbacks[j].Ticker })
	res.ID = uuid.NewString()
	res.RequestID = p.RequestID
	res.CreatedAt = uc.now().UTC()
	res.Fallbacks = fallbacks
	if !p.IncludePaths {
		res.Paths = nil
	}

	uc.metrics.RecordSimulation(res.Method, p.Simulations, res.Steps)
	for _, f := range fallbacks {
		uc.metrics.RecordFallback(f.Reason)
	}
	uc.metrics.RecordLatency("simulation_seconds", time.Since(start).Seconds())
	uc.l.Info("simulation completed",
		applogger.String("id", res.ID),
		applogger.String("method", res.Method),
		applogger.Int("paths", p.Simulations),
		applogger.Int("steps", res.Steps),
		applogger.Int("fallbacks", len(fallbacks)),
		applogger.Duration("duration_ms", time.Since(start)),
	)

	uc.publish(ctx, res)
	return res, nil
}

func (uc *SimulationUseCase) runRegression(ctx context.Context, lookback int, in forecast.SimulationInput, fallbacks *[]models.AssetFallback) (*models.SimulationResult, error) {
	trainer := forecast.NewTrainer(forecast.TrainerConfig{
		Lookback:           lookback,
		VolWindow:          uc.settings.VolWindow,
		PeriodsPerYear:     features.TradingDaysPerYear,
		ValidationFraction: uc.settings.ValidationFraction,
		Seed:               in.Seed,
		Workers:            uc.settings.Workers,
	},
		forecast.WithRegressor(regression.NewRidge(uc.settings.RidgeLambda)),
		forecast.WithTrainerLogger(uc.l),
	)
	outcome, err := trainer.TrainAll(ctx, in.Histories)
	if err != nil {
		return nil, err
	}
	*fallbacks = append(*fallbacks, outcome.Fallbacks...)

	in.Models = outcome.Models
	sim := forecast.NewSimulator(forecast.SimulatorConfig{
		Lookback:       lookback,
		VolWindow:      uc.settings.VolWindow,
		PeriodsPerYear: features.TradingDaysPerYear,
		BufferLen:      uc.settings.BufferLen,
		Noise:          forecast.NoisePolicy{Scale: uc.settings.NoiseScale, Cap: uc.settings.NoiseCap},
		PriceFloor:     uc.settings.PriceFloor,
		Workers:        uc.settings.Workers,
	}, uc.l)
	res, err := sim.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	res.Training = outcome.Reports
	return res, nil
}

func (uc *SimulationUseCase) holdings(ctx context.Context, given []models.Holding) ([]models.Holding, error) {
	if len(given) > 0 {
		out := make([]models.Holding, len(given))
		for i, h := range given {
			out[i] = models.Holding{Ticker: util.NormalizeTicker(h.Ticker), Quantity: h.Quantity}
		}
		return out, nil
	}
	if uc.portfolio == nil {
		return nil, nil
	}
	assets, err := uc.portfolio.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	return models.Holdings(assets), nil
}

// fetchHistories loads the training period per ticker, falling back to the
// recent period. Tickers with neither are reported as no_data.
func (uc *SimulationUseCase) fetchHistories(ctx context.Context, holdings []models.Holding) (map[string][]models.Bar, []models.AssetFallback, error) {
	seen := make(map[string]struct{}, len(holdings))
	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.Ticker]; !ok {
			seen[h.Ticker] = struct{}{}
			tickers = append(tickers, h.Ticker)
		}
	}

	var (
		mu        sync.Mutex
		histories = make(map[string][]models.Bar, len(tickers))
		fallbacks []models.AssetFallback
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.settings.FetchWorkers)
	for _, t := range tickers {
		g.Go(func() error {
			bars, err := uc.fetchOne(gctx, t)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				uc.l.Warn("no historical data, asset excluded", applogger.String("ticker", t), applogger.Error(err))
				fallbacks = append(fallbacks, models.AssetFallback{Ticker: t, Reason: models.FallbackNoData, Detail: err.Error()})
				return nil
			}
			histories[t] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return histories, fallbacks, nil
}

func (uc *SimulationUseCase) fetchOne(ctx context.Context, ticker string) ([]models.Bar, error) {
	start := time.Now()
	defer func() { uc.metrics.RecordLatency("history_fetch_seconds", time.Since(start).Seconds()) }()

	series, err := uc.provider.GetHistoricalData(ctx, ticker, uc.settings.TrainingPeriod)
	if err == nil && series.Len() > 0 {
		return series.Bars, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil {
		err = &domrepo.TickerError{Symbol: ticker, Err: domrepo.ErrNoData}
	}
	if uc.settings.RecentPeriod == uc.settings.TrainingPeriod {
		return nil, err
	}
	uc.l.Debug("training period unavailable, trying recent period",
		applogger.String("ticker", ticker),
		applogger.Error(err),
	)
	recent, rerr := uc.provider.GetHistoricalData(ctx, ticker, uc.settings.RecentPeriod)
	if rerr != nil {
		return nil, errors.Join(err, rerr)
	}
	if recent.Len() == 0 {
		return nil, err
	}
	return recent.Bars, nil
}

func (uc *SimulationUseCase) publish(ctx context.Context, res *models.SimulationResult) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, res.Event()); err != nil {
		uc.metrics.RecordError("result_publish")
		uc.l.Warn("simulation result not published", applogger.String("id", res.ID), applogger.Error(err))
	}
}
