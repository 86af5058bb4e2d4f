package repository

import (
	"context"
	"errors"
	"fmt"

	"FinCast/internal/domain/models"
)

var (
	// ErrNoData is returned when a provider has no bars for a symbol.
	ErrNoData = errors.New("no historical data")
	// ErrAssetNotFound is returned when the portfolio has no such ticker.
	ErrAssetNotFound = errors.New("asset not found")
)

// TickerError carries the symbol an absence or lookup failure relates to.
type TickerError struct {
	Symbol string
	Err    error
}

func (e *TickerError) Error() string { return fmt.Sprintf("%s: %v", e.Symbol, e.Err) }

// Unwrap returns the underlying error.
func (e *TickerError) Unwrap() error { return e.Err }

// PriceProvider returns ordered daily bars for a symbol over a period.
type PriceProvider interface {
	GetHistoricalData(ctx context.Context, symbol string, period Period) (*models.PriceSeries, error)
}

// QuoteSource returns the latest traded price for each requested symbol.
// Symbols without a quote are missing from the map.
type QuoteSource interface {
	LastPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// PortfolioRepository stores assets keyed by ticker.
type PortfolioRepository interface {
	Upsert(ctx context.Context, a models.Asset) error
	Get(ctx context.Context, ticker string) (models.Asset, error)
	List(ctx context.Context) ([]models.Asset, error)
	Delete(ctx context.Context, ticker string) error
}

// ResultPublisher emits finished simulation runs to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, ev models.SimulationEvent) error
	Close() error
}

type Metrics interface {
	RecordSimulation(method string, paths, steps int)
	RecordFallback(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
