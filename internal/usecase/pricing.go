package usecase

import (
	"context"
	"errors"
	"sync"

	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// priceResolver finds a current price per ticker: a live quote when a
// QuoteSource is configured, otherwise the last close over a short period.
type priceResolver struct {
	quotes   domrepo.QuoteSource
	provider domrepo.PriceProvider
	period   domrepo.Period
	workers  int
	l        *applogger.Logger
}

// prices returns the prices it could resolve; tickers without one are absent.
func (r *priceResolver) prices(ctx context.Context, tickers []string) (map[string]float64, error) {
	out := make(map[string]float64, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	if r.quotes != nil {
		q, err := r.quotes.LastPrices(ctx, tickers)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.l.Warn("live quotes unavailable, using last close", applogger.Error(err))
		}
		for t, p := range q {
			if p > 0 {
				out[t] = p
			}
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.workers, 1))
	for _, t := range tickers {
		if _, ok := out[t]; ok {
			continue
		}
		g.Go(func() error {
			series, err := r.provider.GetHistoricalData(gctx, t, r.period)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if !errors.Is(err, domrepo.ErrNoData) {
					r.l.Warn("price lookup failed", applogger.String("ticker", t), applogger.Error(err))
				}
				return nil
			}
			if last, ok := series.Last(); ok && last.Close > 0 {
				mu.Lock()
				out[t] = last.Close
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
