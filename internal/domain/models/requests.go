package models

// Requests for the forecasting HTTP endpoints and the Kafka request topic.

type HoldingInput struct {
	Ticker   string `json:"ticker" validate:"required,max=16"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// SimulationRequest runs on Holdings when given, otherwise on the stored portfolio.
type SimulationRequest struct {
	RequestID    string         `json:"request_id" validate:"max=128"`
	Holdings     []HoldingInput `json:"holdings" validate:"dive"`
	Simulations  int            `json:"simulations" default:"100" validate:"gte=1,lte=100000"`
	Years        float64        `json:"years" default:"1" validate:"gt=0,lte=50"`
	Lookback     int            `json:"lookback" default:"5" validate:"gte=1,lte=60"`
	Seed         uint64         `json:"seed"`
	Method       string         `json:"method" default:"regression" validate:"oneof=regression gaussian"`
	IncludePaths bool           `json:"include_paths"`
}

// HoldingList converts the request holdings.
func (r *SimulationRequest) HoldingList() []Holding {
	out := make([]Holding, 0, len(r.Holdings))
	for _, h := range r.Holdings {
		out = append(out, Holding{Ticker: h.Ticker, Quantity: h.Quantity})
	}
	return out
}

type AddAssetRequest struct {
	Ticker        string  `json:"ticker" validate:"required,max=16"`
	Sector        string  `json:"sector" validate:"max=64"`
	AssetClass    string  `json:"asset_class" validate:"max=64"`
	Quantity      int     `json:"quantity" validate:"gte=0"`
	PurchasePrice float64 `json:"purchase_price" validate:"gte=0"`
}

type CalculationsRequest struct {
	Option     string `query:"option" default:"total" validate:"oneof=total class sector"`
	AssetClass string `query:"class"`
	Sector     string `query:"sector"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" validate:"required"`
	Period string `query:"period" default:"1mo" validate:"oneof=5d 1mo 3mo 6mo 1y 2y 5y 10y max"`
	Limit  int    `query:"limit" default:"5000" validate:"gte=1,lte=50000"`
}
