package models

import (
	"github.com/shopspring/decimal"
)

// Asset is a single holding of the portfolio. Ticker is the unique key.
type Asset struct {
	Ticker        string          `json:"ticker"`
	Sector        string          `json:"sector"`
	AssetClass    string          `json:"asset_class"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

// Holding is the part of an asset the simulator needs.
type Holding struct {
	Ticker   string
	Quantity int
}

// AssetCalculation is one line of a portfolio breakdown.
type AssetCalculation struct {
	Ticker string          `json:"ticker"`
	Weight decimal.Decimal `json:"weight"`
	Value  float64         `json:"value"`
}

// Holdings converts assets into simulator holdings, keeping input order.
func Holdings(assets []Asset) []Holding {
	out := make([]Holding, 0, len(assets))
	for _, a := range assets {
		out = append(out, Holding{Ticker: a.Ticker, Quantity: a.Quantity})
	}
	return out
}
