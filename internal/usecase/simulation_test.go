package usecase

import (
	"context"
	"errors"
	"testing"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/services/forecast"
	"FinCast/pkg/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleHoldings() []models.Holding {
	return []models.Holding{{Ticker: "AAPL", Quantity: 3}, {Ticker: "MSFT", Quantity: 2}}
}

func TestSimulate_ConstantPortfolio(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{
		"AAPL": flatBars(300, 150),
		"MSFT": flatBars(300, 300),
	})
	pub := &recordingPublisher{}
	uc := NewSimulationUseCase(testSettings(), prov, nil, pub, nopMetrics, nil)

	res, err := uc.Simulate(context.Background(), SimulateParams{
		RequestID:    "req-1",
		Holdings:     exampleHoldings(),
		Simulations:  20,
		Years:        0.1,
		Lookback:     5,
		Seed:         42,
		IncludePaths: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, models.MethodRegression, res.Method)
	assert.Equal(t, util.TradingDays(0.1, 252), res.Steps)
	assert.InDelta(t, 1050.0, res.InitialValue, 1e-9)
	require.Len(t, res.Paths, 20)
	for _, p := range res.Paths {
		require.Len(t, p, res.Steps+1)
		assert.InDelta(t, 1050.0, p[len(p)-1], 1e-6)
	}
	require.NotNil(t, res.Summary)
	assert.InDelta(t, 1050.0, res.Summary.Mean, 1e-6)
	assert.Empty(t, res.Fallbacks)
	assert.Len(t, res.Training, 2)

	require.Equal(t, 1, pub.count())
	assert.Equal(t, res.ID, pub.events[0].ID)
	assert.Equal(t, "req-1", pub.events[0].RequestID)
	assert.Equal(t, 2, prov.calls[domrepo.Period10y], "one training fetch per asset")
}

func TestSimulate_PathsOmittedByDefault(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": flatBars(300, 150)})
	uc := NewSimulationUseCase(testSettings(), prov, nil, nil, nopMetrics, nil)

	res, err := uc.Simulate(context.Background(), SimulateParams{
		Holdings: []models.Holding{{Ticker: "aapl", Quantity: 1}}, Simulations: 3, Years: 0.05, Lookback: 3, Seed: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Paths)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 3, res.Summary.Paths)
}

func TestSimulate_SeedReproducible(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{
		"AAPL": walkBars(300, 150, 1),
		"MSFT": walkBars(300, 300, 2),
	})
	uc := NewSimulationUseCase(testSettings(), prov, nil, nil, nopMetrics, nil)
	params := SimulateParams{Holdings: exampleHoldings(), Simulations: 8, Years: 0.1, Lookback: 4, Seed: 99, IncludePaths: true}

	a, err := uc.Simulate(context.Background(), params)
	require.NoError(t, err)
	b, err := uc.Simulate(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, a.Paths, b.Paths)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSimulate_Fallbacks(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{
		"AAPL": flatBars(300, 150),
		"TINY": flatBars(10, 40),
	})
	uc := NewSimulationUseCase(testSettings(), prov, nil, nil, nopMetrics, nil)

	res, err := uc.Simulate(context.Background(), SimulateParams{
		Holdings: []models.Holding{
			{Ticker: "AAPL", Quantity: 3},
			{Ticker: "GONE", Quantity: 5},
			{Ticker: "TINY", Quantity: 10},
		},
		Simulations: 4, Years: 0.05, Lookback: 5, Seed: 3, IncludePaths: true,
	})
	require.NoError(t, err)

	require.Len(t, res.Fallbacks, 2)
	assert.Equal(t, "GONE", res.Fallbacks[0].Ticker)
	assert.Equal(t, models.FallbackNoData, res.Fallbacks[0].Reason)
	assert.Equal(t, "TINY", res.Fallbacks[1].Ticker)
	assert.Equal(t, models.FallbackInsufficient, res.Fallbacks[1].Reason)

	// GONE excluded, TINY forward-filled at 40
	for _, p := range res.Paths {
		assert.InDelta(t, 3*150.0+10*40.0, p[len(p)-1], 1e-6)
	}
}

func TestSimulate_RecentPeriodFallback(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": flatBars(300, 150)})
	prov.fail[domrepo.Period10y] = true
	uc := NewSimulationUseCase(testSettings(), prov, nil, nil, nopMetrics, nil)

	res, err := uc.Simulate(context.Background(), SimulateParams{
		Holdings: []models.Holding{{Ticker: "AAPL", Quantity: 1}}, Simulations: 2, Years: 0.05, Lookback: 5, Seed: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Fallbacks)
	assert.Equal(t, 1, prov.calls[domrepo.Period2y])
}

func TestSimulate_UsesStoredPortfolio(t *testing.T) {
	repo := newPortfolioRepo(t)
	require.NoError(t, repo.Upsert(context.Background(), models.Asset{Ticker: "AAPL", Quantity: 3, PurchasePrice: decimal.NewFromInt(100)}))
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": flatBars(300, 150)})
	uc := NewSimulationUseCase(testSettings(), prov, repo, nil, nopMetrics, nil)

	res, err := uc.Simulate(context.Background(), SimulateParams{Simulations: 2, Years: 0.05, Lookback: 5, Seed: 1})
	require.NoError(t, err)
	assert.InDelta(t, 450.0, res.InitialValue, 1e-9)
}

func TestSimulate_Gaussian(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{
		"AAPL": walkBars(200, 150, 5),
		"MSFT": walkBars(200, 300, 6),
	})
	uc := NewSimulationUseCase(testSettings(), prov, nil, nil, nopMetrics, nil)

	res, err := uc.Simulate(context.Background(), SimulateParams{
		Holdings: exampleHoldings(), Simulations: 10, Years: 0.1, Method: models.MethodGaussian, Seed: 4, IncludePaths: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MethodGaussian, res.Method)
	require.Len(t, res.Paths, 10)
	for _, p := range res.Paths {
		assert.Len(t, p, res.Steps+1)
	}
}

func TestSimulate_Errors(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": flatBars(300, 150)})
	uc := NewSimulationUseCase(testSettings(), prov, newPortfolioRepo(t), nil, nopMetrics, nil)
	ctx := context.Background()
	ok := SimulateParams{Holdings: []models.Holding{{Ticker: "AAPL", Quantity: 1}}, Simulations: 2, Years: 1, Lookback: 5}

	_, err := uc.Simulate(ctx, SimulateParams{Simulations: 2, Years: 1, Lookback: 5})
	assert.ErrorIs(t, err, forecast.ErrEmptyPortfolio)

	for name, mutate := range map[string]func(*SimulateParams){
		"zero simulations": func(p *SimulateParams) { p.Simulations = 0 },
		"too many":         func(p *SimulateParams) { p.Simulations = 5000 },
		"zero years":       func(p *SimulateParams) { p.Years = 0 },
		"zero lookback":    func(p *SimulateParams) { p.Lookback = 0 },
		"bad method":       func(p *SimulateParams) { p.Method = "magic" },
		"negative qty":     func(p *SimulateParams) { p.Holdings = []models.Holding{{Ticker: "AAPL", Quantity: -1}} },
	} {
		p := ok
		mutate(&p)
		_, err := uc.Simulate(ctx, p)
		assert.ErrorIs(t, err, forecast.ErrInvalidParams, name)
	}
}

func TestSimulate_SingleDayLookbackForwardFills(t *testing.T) {
	aapl, msft := walkBars(300, 150, 1), walkBars(300, 300, 2)
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": aapl, "MSFT": msft})
	uc := NewSimulationUseCase(testSettings(), prov, nil, nil, nopMetrics, nil)

	res, err := uc.Simulate(context.Background(), SimulateParams{
		Holdings:     exampleHoldings(),
		Simulations:  4,
		Years:        0.05,
		Lookback:     1,
		Seed:         3,
		IncludePaths: true,
	})
	require.NoError(t, err)

	want := 3*aapl[len(aapl)-1].Close + 2*msft[len(msft)-1].Close
	require.Len(t, res.Paths, 4)
	for _, p := range res.Paths {
		for _, v := range p {
			assert.InDelta(t, want, v, 1e-9)
		}
	}
	require.Len(t, res.Fallbacks, 2)
	for _, f := range res.Fallbacks {
		assert.Equal(t, models.FallbackInsufficient, f.Reason)
	}
	assert.Empty(t, res.Training)
}

func TestSimulate_DisabledNoiseGivesIdenticalPaths(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": walkBars(300, 150, 5)})
	settings := testSettings()
	settings.DisableNoise = true
	uc := NewSimulationUseCase(settings, prov, nil, nil, nopMetrics, nil)

	res, err := uc.Simulate(context.Background(), SimulateParams{
		Holdings:     []models.Holding{{Ticker: "AAPL", Quantity: 1}},
		Simulations:  3,
		Years:        0.05,
		Lookback:     5,
		Seed:         11,
		IncludePaths: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Paths, 3)
	assert.Equal(t, res.Paths[0], res.Paths[1])
	assert.Equal(t, res.Paths[0], res.Paths[2])
}

func TestSimulate_PublishFailureIsNotFatal(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": flatBars(300, 150)})
	pub := &recordingPublisher{err: errors.New("broker down")}
	uc := NewSimulationUseCase(testSettings(), prov, nil, pub, nopMetrics, nil)

	_, err := uc.Simulate(context.Background(), SimulateParams{
		Holdings: []models.Holding{{Ticker: "AAPL", Quantity: 1}}, Simulations: 1, Years: 0.05, Lookback: 5, Seed: 1,
	})
	assert.NoError(t, err)
}

func TestSimulate_Cancelled(t *testing.T) {
	prov := newFakeProvider(map[string][]models.Bar{"AAPL": flatBars(300, 150)})
	uc := NewSimulationUseCase(testSettings(), prov, nil, nil, nopMetrics, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Simulate(ctx, SimulateParams{
		Holdings: []models.Holding{{Ticker: "AAPL", Quantity: 1}}, Simulations: 2, Years: 1, Lookback: 5,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
