package forecast

import (
	"math/rand/v2"
	"time"

	"FinCast/internal/domain/models"
)

type constModel float64

func (c constModel) Predict([]float64) float64 { return float64(c) }

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func flatBars(n int, price float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Date: day0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
	}
	return bars
}

func walkBars(n int, start float64, seed uint64) []models.Bar {
	rng := rand.New(rand.NewPCG(seed, 1))
	bars := make([]models.Bar, n)
	price := start
	for i := range bars {
		open := price
		price += rng.NormFloat64()
		if price < 1 {
			price = 1
		}
		bars[i] = models.Bar{
			Date:  day0.AddDate(0, 0, i),
			Open:  open,
			High:  max(open, price),
			Low:   min(open, price),
			Close: price,
		}
	}
	return bars
}

func examplePortfolio() []models.Holding {
	return []models.Holding{{Ticker: "AAPL", Quantity: 3}, {Ticker: "MSFT", Quantity: 2}}
}

func exampleHistories() map[string][]models.Bar {
	return map[string][]models.Bar{
		"AAPL": flatBars(60, 150),
		"MSFT": flatBars(60, 300),
	}
}
