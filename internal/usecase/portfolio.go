package usecase

import (
	"context"
	"errors"
	"fmt"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"

	"github.com/shopspring/decimal"
)

// ErrUnknownTicker is returned when the provider has no recent data for a ticker.
var ErrUnknownTicker = errors.New("unknown ticker")

// Calculation options.
const (
	CalcTotal  = "total"
	CalcClass  = "class"
	CalcSector = "sector"
)

// PortfolioUseCase manages the holdings and values them at current prices.
type PortfolioUseCase struct {
	repo         domrepo.PortfolioRepository
	provider     domrepo.PriceProvider
	verifyPeriod domrepo.Period
	prices       *priceResolver
	l            *applogger.Logger
}

// NewPortfolioUseCase creates the use case. quotes may be nil.
func NewPortfolioUseCase(
	repo domrepo.PortfolioRepository,
	provider domrepo.PriceProvider,
	quotes domrepo.QuoteSource,
	verifyPeriod domrepo.Period,
	workers int,
	l *applogger.Logger,
) *PortfolioUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if !domrepo.IsValidPeriod(verifyPeriod) {
		verifyPeriod = domrepo.Period1mo
	}
	return &PortfolioUseCase{
		repo:         repo,
		provider:     provider,
		verifyPeriod: verifyPeriod,
		prices: &priceResolver{
			quotes:   quotes,
			provider: provider,
			period:   domrepo.Period5d,
			workers:  workers,
			l:        l,
		},
		l: l,
	}
}

// AddAsset verifies the ticker has recent data and stores the asset,
// replacing any asset with the same ticker.
func (uc *PortfolioUseCase) AddAsset(ctx context.Context, req models.AddAssetRequest) (models.Asset, error) {
	ticker := util.NormalizeTicker(req.Ticker)
	if ticker == "" {
		return models.Asset{}, fmt.Errorf("ticker required")
	}
	if req.Quantity < 0 || req.PurchasePrice < 0 {
		return models.Asset{}, fmt.Errorf("quantity and purchase price must be non-negative")
	}

	if _, err := uc.provider.GetHistoricalData(ctx, ticker, uc.verifyPeriod); err != nil {
		if errors.Is(err, domrepo.ErrNoData) {
			return models.Asset{}, &domrepo.TickerError{Symbol: ticker, Err: ErrUnknownTicker}
		}
		return models.Asset{}, fmt.Errorf("verify ticker %s: %w", ticker, err)
	}

	a := models.Asset{
		Ticker:        ticker,
		Sector:        req.Sector,
		AssetClass:    req.AssetClass,
		Quantity:      req.Quantity,
		PurchasePrice: decimal.NewFromFloat(req.PurchasePrice),
	}
	if err := uc.repo.Upsert(ctx, a); err != nil {
		return models.Asset{}, err
	}
	uc.l.Info("asset added", applogger.String("ticker", ticker), applogger.Int("quantity", a.Quantity))
	return a, nil
}

func (uc *PortfolioUseCase) ListAssets(ctx context.Context) ([]models.Asset, error) {
	return uc.repo.List(ctx)
}

func (uc *PortfolioUseCase) GetAsset(ctx context.Context, ticker string) (models.Asset, error) {
	return uc.repo.Get(ctx, ticker)
}

func (uc *PortfolioUseCase) RemoveAsset(ctx context.Context, ticker string) error {
	if err := uc.repo.Delete(ctx, ticker); err != nil {
		return err
	}
	uc.l.Info("asset removed", applogger.String("ticker", util.NormalizeTicker(ticker)))
	return nil
}

type valuation struct {
	assets []models.Asset
	values map[string]float64
	total  float64
}

func (uc *PortfolioUseCase) value(ctx context.Context) (*valuation, error) {
	assets, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	tickers := make([]string, len(assets))
	for i, a := range assets {
		tickers[i] = a.Ticker
	}
	prices, err := uc.prices.prices(ctx, tickers)
	if err != nil {
		return nil, err
	}

	v := &valuation{assets: assets, values: make(map[string]float64, len(assets))}
	for _, a := range assets {
		p, ok := prices[a.Ticker]
		if !ok {
			uc.l.Warn("no price for asset, valued at zero", applogger.String("ticker", a.Ticker))
		}
		v.values[a.Ticker] = float64(a.Quantity) * p
		v.total += v.values[a.Ticker]
	}
	return v, nil
}

func (v *valuation) weight(ticker string) decimal.Decimal {
	if v.total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v.values[ticker]).Div(decimal.NewFromFloat(v.total))
}

// Weight returns the share of ticker in the total portfolio value.
func (uc *PortfolioUseCase) Weight(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ticker = util.NormalizeTicker(ticker)
	if _, err := uc.repo.Get(ctx, ticker); err != nil {
		return decimal.Zero, err
	}
	v, err := uc.value(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return v.weight(ticker), nil
}

// Calculations lists ticker, weight and value of the selected assets.
// Weights stay relative to the whole portfolio and are rounded to three
// decimals. option is total, class (filtered by assetClass) or sector.
func (uc *PortfolioUseCase) Calculations(ctx context.Context, option, assetClass, sector string) ([]models.AssetCalculation, error) {
	switch option {
	case CalcTotal, CalcClass, CalcSector:
	default:
		return nil, fmt.Errorf("unsupported calculation option %q", option)
	}
	v, err := uc.value(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.AssetCalculation, 0, len(v.assets))
	for _, a := range v.assets {
		if option == CalcClass && a.AssetClass != assetClass {
			continue
		}
		if option == CalcSector && a.Sector != sector {
			continue
		}
		out = append(out, models.AssetCalculation{
			Ticker: a.Ticker,
			Weight: v.weight(a.Ticker).Round(3),
			Value:  v.values[a.Ticker],
		})
	}
	return out, nil
}

// PortfolioValue returns the sum of quantity times current price.
func (uc *PortfolioUseCase) PortfolioValue(ctx context.Context) (float64, error) {
	v, err := uc.value(ctx)
	if err != nil {
		return 0, err
	}
	return v.total, nil
}
