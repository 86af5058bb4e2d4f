package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"FinCast/internal/di"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/repository"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	"FinCast/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatProvider map[string]float64

func (p flatProvider) GetHistoricalData(_ context.Context, symbol string, _ domrepo.Period) (*models.PriceSeries, error) {
	price, ok := p[symbol]
	if !ok {
		return nil, &domrepo.TickerError{Symbol: symbol, Err: domrepo.ErrNoData}
	}
	d0 := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 200)
	for i := range bars {
		bars[i] = models.Bar{Date: d0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
	}
	return &models.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

func testState(t *testing.T) *state {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	prov := flatProvider{"AAPL": 100, "MSFT": 50}
	repo := repository.NewCachePortfolioRepository(mc)
	return &state{cli: &di.CLI{
		Simulation: usecase.NewSimulationUseCase(usecase.SimulationSettings{
			ValidationFraction: 0.2,
			VolWindow:          10,
			PriceFloor:         0.01,
			RidgeLambda:        1,
			Workers:            2,
		}, prov, repo, nil, metrics.Nop{}, nil),
		History: usecase.NewHistoryUseCase(prov),
	}}
}

func TestParseAssets(t *testing.T) {
	got, err := parseAssets([]string{"AAPL:3", " msft : 2 "})
	require.NoError(t, err)
	assert.Equal(t, []models.HoldingInput{{Ticker: "AAPL", Quantity: 3}, {Ticker: "msft", Quantity: 2}}, got)

	for _, bad := range []string{"AAPL", ":3", "AAPL:x", "AAPL:-1"} {
		_, err := parseAssets([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestSimulateCommand_JSON(t *testing.T) {
	cmd := newSimulateCmd(testState(t))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--asset", "AAPL:3", "--asset", "MSFT:2", "--simulations", "4", "--years", "0.1", "--seed", "7", "--json"})
	require.NoError(t, cmd.Execute())

	var res models.SimulationResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.InDelta(t, 400.0, res.InitialValue, 1e-9)
	assert.Equal(t, 25, res.Steps)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 4, res.Summary.Paths)
	assert.Empty(t, res.Paths)
}

func TestSimulateCommand_RejectsBadFlags(t *testing.T) {
	cmd := newSimulateCmd(testState(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--asset", "AAPL:3", "--method", "arima"})
	assert.Error(t, cmd.Execute())
}

func TestHistoryCommand_Table(t *testing.T) {
	cmd := newHistoryCmd(testState(t))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--symbol", "msft", "--period", "1y", "--limit", "3"})
	require.NoError(t, cmd.Execute())

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "CLOSE")
	assert.Contains(t, string(lines[3]), "50.00")
}
