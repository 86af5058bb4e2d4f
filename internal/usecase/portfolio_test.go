package usecase

import (
	"context"
	"errors"
	"testing"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededPortfolio(t *testing.T, quotes domrepo.QuoteSource) *PortfolioUseCase {
	t.Helper()
	prov := newFakeProvider(map[string][]models.Bar{
		"AAPL": flatBars(30, 150),
		"MSFT": flatBars(30, 300),
		"BND":  flatBars(30, 70),
	})
	uc := NewPortfolioUseCase(newPortfolioRepo(t), prov, quotes, domrepo.Period1mo, 2, nil)
	ctx := context.Background()
	for _, req := range []models.AddAssetRequest{
		{Ticker: "aapl", Sector: "tech", AssetClass: "equity", Quantity: 3, PurchasePrice: 120},
		{Ticker: "MSFT", Sector: "tech", AssetClass: "equity", Quantity: 2, PurchasePrice: 250},
	} {
		_, err := uc.AddAsset(ctx, req)
		require.NoError(t, err)
	}
	return uc
}

func TestPortfolio_AddListRemove(t *testing.T) {
	uc := seededPortfolio(t, nil)
	ctx := context.Background()

	assets, err := uc.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "AAPL", assets[0].Ticker)
	assert.Equal(t, "120", assets[0].PurchasePrice.String())

	a, err := uc.GetAsset(ctx, "msft")
	require.NoError(t, err)
	assert.Equal(t, "tech", a.Sector)

	require.NoError(t, uc.RemoveAsset(ctx, "MSFT"))
	_, err = uc.GetAsset(ctx, "MSFT")
	assert.ErrorIs(t, err, domrepo.ErrAssetNotFound)
	assert.ErrorIs(t, uc.RemoveAsset(ctx, "MSFT"), domrepo.ErrAssetNotFound)
}

func TestPortfolio_AddUnknownTicker(t *testing.T) {
	uc := seededPortfolio(t, nil)
	_, err := uc.AddAsset(context.Background(), models.AddAssetRequest{Ticker: "NOPE", Quantity: 1})
	assert.ErrorIs(t, err, ErrUnknownTicker)

	var te *domrepo.TickerError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "NOPE", te.Symbol)

	_, err = uc.AddAsset(context.Background(), models.AddAssetRequest{Ticker: " "})
	assert.Error(t, err)
}

func TestPortfolio_Calculations(t *testing.T) {
	uc := seededPortfolio(t, nil)
	ctx := context.Background()
	_, err := uc.AddAsset(ctx, models.AddAssetRequest{Ticker: "BND", Sector: "bonds", AssetClass: "fixed", Quantity: 0})
	require.NoError(t, err)

	total, err := uc.Calculations(ctx, CalcTotal, "", "")
	require.NoError(t, err)
	require.Len(t, total, 3)
	assert.Equal(t, "AAPL", total[0].Ticker)
	assert.Equal(t, "0.429", total[0].Weight.String())
	assert.InDelta(t, 450.0, total[0].Value, 1e-9)
	assert.Equal(t, "0", total[1].Weight.String())
	assert.Equal(t, "0.571", total[2].Weight.String())

	bySector, err := uc.Calculations(ctx, CalcSector, "", "bonds")
	require.NoError(t, err)
	require.Len(t, bySector, 1)
	assert.Equal(t, "BND", bySector[0].Ticker)

	byClass, err := uc.Calculations(ctx, CalcClass, "equity", "")
	require.NoError(t, err)
	require.Len(t, byClass, 2)
	assert.Equal(t, "0.571", byClass[1].Weight.String(), "weights stay relative to the whole portfolio")

	_, err = uc.Calculations(ctx, "region", "", "")
	assert.Error(t, err)
}

func TestPortfolio_WeightAndValue(t *testing.T) {
	uc := seededPortfolio(t, nil)
	ctx := context.Background()

	w, err := uc.Weight(ctx, "MSFT")
	require.NoError(t, err)
	assert.InDelta(t, 600.0/1050.0, w.InexactFloat64(), 1e-12)

	_, err = uc.Weight(ctx, "TSLA")
	assert.ErrorIs(t, err, domrepo.ErrAssetNotFound)

	v, err := uc.PortfolioValue(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, v, 1e-9)
}

func TestPortfolio_LiveQuotesPreferred(t *testing.T) {
	uc := seededPortfolio(t, &fakeQuotes{prices: map[string]float64{"AAPL": 200}})

	v, err := uc.PortfolioValue(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 3*200.0+2*300.0, v, 1e-9)
}

func TestPortfolio_QuoteFailureFallsBackToClose(t *testing.T) {
	uc := seededPortfolio(t, &fakeQuotes{err: errors.New("ws down")})

	v, err := uc.PortfolioValue(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, v, 1e-9)
}

func TestPortfolio_EmptyValue(t *testing.T) {
	uc := NewPortfolioUseCase(newPortfolioRepo(t), newFakeProvider(nil), nil, domrepo.Period1mo, 1, nil)

	v, err := uc.PortfolioValue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, v)

	calc, err := uc.Calculations(context.Background(), CalcTotal, "", "")
	require.NoError(t, err)
	assert.Empty(t, calc)
}
