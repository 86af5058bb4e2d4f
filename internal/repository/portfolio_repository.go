package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
	"FinCast/pkg/util"
)

const portfolioPrefix = "portfolio"

// CachePortfolioRepository keeps assets in a cache.Service without expiry
// (Redis persists them; the memory cache holds them for its default TTL).
type CachePortfolioRepository struct {
	cache cache.Service
}

// NewCachePortfolioRepository creates the repository.
func NewCachePortfolioRepository(c cache.Service) *CachePortfolioRepository {
	return &CachePortfolioRepository{cache: c}
}

func assetKey(ticker string) string {
	return cache.Key(portfolioPrefix, util.NormalizeTicker(ticker))
}

func (r *CachePortfolioRepository) Upsert(ctx context.Context, a models.Asset) error {
	a.Ticker = util.NormalizeTicker(a.Ticker)
	if a.Ticker == "" {
		return errors.New("asset ticker is empty")
	}
	if err := r.cache.Set(ctx, assetKey(a.Ticker), a, 0); err != nil {
		return fmt.Errorf("save asset %s: %w", a.Ticker, err)
	}
	return nil
}

func (r *CachePortfolioRepository) Get(ctx context.Context, ticker string) (models.Asset, error) {
	a, err := cache.GetTyped[models.Asset](ctx, r.cache, assetKey(ticker))
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.Asset{}, &domrepo.TickerError{Symbol: util.NormalizeTicker(ticker), Err: domrepo.ErrAssetNotFound}
	}
	if err != nil {
		return models.Asset{}, fmt.Errorf("load asset %s: %w", ticker, err)
	}
	return a, nil
}

// List returns all assets ordered by ticker.
func (r *CachePortfolioRepository) List(ctx context.Context) ([]models.Asset, error) {
	keys, err := r.cache.Keys(ctx, portfolioPrefix+":*")
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	sort.Strings(keys)

	out := make([]models.Asset, 0, len(keys))
	for _, k := range keys {
		a, err := r.Get(ctx, strings.TrimPrefix(k, portfolioPrefix+":"))
		if errors.Is(err, domrepo.ErrAssetNotFound) {
			// expired between Keys and Get
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *CachePortfolioRepository) Delete(ctx context.Context, ticker string) error {
	ok, err := r.cache.Exists(ctx, assetKey(ticker))
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", ticker, err)
	}
	if !ok {
		return &domrepo.TickerError{Symbol: util.NormalizeTicker(ticker), Err: domrepo.ErrAssetNotFound}
	}
	if err := r.cache.Delete(ctx, assetKey(ticker)); err != nil {
		return fmt.Errorf("delete asset %s: %w", ticker, err)
	}
	return nil
}
