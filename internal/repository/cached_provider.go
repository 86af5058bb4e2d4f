package repository

import (
	"context"
	"errors"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// Fill lock defaults. A caller that loses the lock polls the cache for up to
// fillWait before fetching on its own.
const (
	fillLockTTL = 30 * time.Second
	fillWait    = 5 * time.Second
	fillPoll    = 100 * time.Millisecond
)

// CachedProvider memoizes price series in a cache.Service. Misses take a
// per-key fill lock so concurrent runs fetch a series upstream once.
type CachedProvider struct {
	cache   cache.Service
	next    domrepo.PriceProvider
	ttl     time.Duration
	lockTTL time.Duration
	wait    time.Duration
	poll    time.Duration
	l       *applogger.Logger
}

// NewCachedProvider wraps next; entries live for ttl.
func NewCachedProvider(c cache.Service, next domrepo.PriceProvider, ttl time.Duration, l *applogger.Logger) *CachedProvider {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedProvider{
		cache:   c,
		next:    next,
		ttl:     ttl,
		lockTTL: fillLockTTL,
		wait:    fillWait,
		poll:    fillPoll,
		l:       l,
	}
}

func (p *CachedProvider) GetHistoricalData(ctx context.Context, symbol string, period domrepo.Period) (*models.PriceSeries, error) {
	symbol = util.NormalizeTicker(symbol)
	key := cache.Key("bars", symbol, string(period))

	series, err := cache.GetTyped[*models.PriceSeries](ctx, p.cache, key)
	if err == nil && series.Len() > 0 {
		return series, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		p.l.Warn("price cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	lockKey := cache.Key("lock", key)
	locked, err := p.cache.TryLock(ctx, lockKey, p.lockTTL)
	switch {
	case err != nil:
		p.l.Warn("price fill lock failed", applogger.String("key", lockKey), applogger.Error(err))
	case locked:
		defer func() {
			if err := p.cache.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
				p.l.Warn("price fill unlock failed", applogger.String("key", lockKey), applogger.Error(err))
			}
		}()
	default:
		if series, ok := p.awaitFill(ctx, key); ok {
			return series, nil
		}
	}

	series, err = p.next.GetHistoricalData(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, series, p.ttl); err != nil {
		p.l.Warn("price cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return series, nil
}

// awaitFill polls key until another caller stores a non-empty series, the
// wait elapses or ctx ends.
func (p *CachedProvider) awaitFill(ctx context.Context, key string) (*models.PriceSeries, bool) {
	deadline := time.NewTimer(p.wait)
	defer deadline.Stop()
	tick := time.NewTicker(p.poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-deadline.C:
			return nil, false
		case <-tick.C:
			series, err := cache.GetTyped[*models.PriceSeries](ctx, p.cache, key)
			if err == nil && series.Len() > 0 {
				return series, true
			}
		}
	}
}
