package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// staleness tolerated at each end of a stored range (weekends, holidays,
// listing dates inside the period).
const (
	storeHeadSlack = 7 * 24 * time.Hour
	storeTailSlack = 4 * 24 * time.Hour
)

// StoredProvider serves bars from a BarStore when it covers the requested
// period and otherwise fetches upstream and writes the result back.
type StoredProvider struct {
	store    BarStore
	upstream domrepo.PriceProvider
	l        *applogger.Logger
	now      func() time.Time
}

// NewStoredProvider creates the read-through provider.
func NewStoredProvider(store BarStore, upstream domrepo.PriceProvider, l *applogger.Logger) *StoredProvider {
	if l == nil {
		l = applogger.Nop()
	}
	return &StoredProvider{store: store, upstream: upstream, l: l, now: time.Now}
}

func (p *StoredProvider) GetHistoricalData(ctx context.Context, symbol string, period domrepo.Period) (*models.PriceSeries, error) {
	symbol = util.NormalizeTicker(symbol)
	from, to, err := period.Range(p.now())
	if err != nil {
		return nil, err
	}

	bars, err := p.store.Bars(ctx, symbol, from, to)
	if err != nil {
		p.l.Warn("bar store read failed", applogger.String("symbol", symbol), applogger.Error(err))
	} else if covers(bars, from, to, period == domrepo.PeriodMax) {
		return &models.PriceSeries{Symbol: symbol, Bars: bars}, nil
	}

	series, err := p.upstream.GetHistoricalData(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveBars(ctx, symbol, series.Bars); err != nil {
		p.l.Warn("bar store write failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	return series, nil
}

func covers(bars []models.Bar, from, to time.Time, open bool) bool {
	if len(bars) == 0 {
		return false
	}
	if bars[len(bars)-1].Date.Before(to.Add(-storeTailSlack)) {
		return false
	}
	return open || !bars[0].Date.After(from.Add(storeHeadSlack))
}
