package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/repository"
	"FinCast/pkg/cache"
	"FinCast/pkg/metrics"
)

var day0 = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

func flatBars(n int, price float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Date: day0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
	}
	return bars
}

func walkBars(n int, start float64, seed uint64) []models.Bar {
	rng := rand.New(rand.NewPCG(seed, 7))
	bars := make([]models.Bar, n)
	price := start
	for i := range bars {
		open := price
		price *= 1 + 0.01*rng.NormFloat64()
		bars[i] = models.Bar{Date: day0.AddDate(0, 0, i), Open: open, High: max(open, price), Low: min(open, price), Close: price}
	}
	return bars
}

// fakeProvider serves fixed bars per ticker; periods listed in fail return
// an upstream error.
type fakeProvider struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar
	fail  map[domrepo.Period]bool
	calls map[domrepo.Period]int
}

func newFakeProvider(bars map[string][]models.Bar) *fakeProvider {
	return &fakeProvider{bars: bars, fail: map[domrepo.Period]bool{}, calls: map[domrepo.Period]int{}}
}

func (p *fakeProvider) GetHistoricalData(_ context.Context, symbol string, period domrepo.Period) (*models.PriceSeries, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[period]++
	if p.fail[period] {
		return nil, errors.New("upstream unavailable")
	}
	bars, ok := p.bars[symbol]
	if !ok {
		return nil, &domrepo.TickerError{Symbol: symbol, Err: domrepo.ErrNoData}
	}
	return &models.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

type fakeQuotes struct {
	prices map[string]float64
	err    error
}

func (q *fakeQuotes) LastPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	if q.err != nil {
		return nil, q.err
	}
	out := map[string]float64{}
	for _, s := range symbols {
		if p, ok := q.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SimulationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.SimulationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newPortfolioRepo(t *testing.T) *repository.CachePortfolioRepository {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return repository.NewCachePortfolioRepository(mc)
}

func testSettings() SimulationSettings {
	return SimulationSettings{
		TrainingPeriod:     domrepo.Period10y,
		RecentPeriod:       domrepo.Period2y,
		ValidationFraction: 0.2,
		VolWindow:          20,
		NoiseScale:         2,
		NoiseCap:           5,
		PriceFloor:         0.01,
		RidgeLambda:        1,
		Workers:            4,
		FetchWorkers:       2,
		MaxPaths:           1000,
		Timeout:            time.Minute,
	}
}

var nopMetrics = metrics.Nop{}
