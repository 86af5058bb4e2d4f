package usecase

import (
	"context"
	"fmt"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/util"
)

// HistoryUseCase returns historical bars for presentation.
type HistoryUseCase struct {
	provider domrepo.PriceProvider
}

func NewHistoryUseCase(provider domrepo.PriceProvider) *HistoryUseCase {
	return &HistoryUseCase{provider: provider}
}

type GetHistoryParams struct {
	Symbol string
	Period domrepo.Period
	Limit  int
}

type GetHistoryResult struct {
	Symbol string       `json:"symbol"`
	Period string       `json:"period"`
	Count  int          `json:"count"`
	Bars   []models.Bar `json:"bars"`
}

// GetHistory returns at most Limit of the most recent bars over Period.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	p.Symbol = util.NormalizeTicker(p.Symbol)
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.Period == "" {
		p.Period = domrepo.Period1mo
	}
	if !domrepo.IsValidPeriod(p.Period) {
		return nil, fmt.Errorf("unsupported period: %s", p.Period)
	}
	if p.Limit <= 0 {
		p.Limit = 5000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	series, err := uc.provider.GetHistoricalData(ctx, p.Symbol, p.Period)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	bars := series.Tail(p.Limit)

	return &GetHistoryResult{
		Symbol: p.Symbol,
		Period: string(p.Period),
		Count:  len(bars),
		Bars:   bars,
	}, nil
}
