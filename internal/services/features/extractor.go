package features

import (
	"math"

	"FinCast/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultVolWindow is the trailing window of the rolling volatility.
	DefaultVolWindow = 20
	// TradingDaysPerYear annualizes daily volatility and converts horizons.
	TradingDaysPerYear = 252
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// The result is aligned with bars: index 0 and any return involving a
// non-positive close are NaN.
func ComputeLogReturns(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(cur / prev)
	}
	return out
}

// RealizedVolatility computes the annualized sample volatility of the window
// of log returns ending at end (inclusive). Returns NaN when the window is
// incomplete or holds an undefined return.
func RealizedVolatility(logReturns []float64, end, window int, periodsPerYear float64) float64 {
	start := end - window + 1
	if window <= 1 || start < 0 || end >= len(logReturns) {
		return math.NaN()
	}
	w := logReturns[start : end+1]
	for _, r := range w {
		if math.IsNaN(r) {
			return math.NaN()
		}
	}
	return stat.StdDev(w, nil) * math.Sqrt(periodsPerYear)
}

// ComputeFeatures turns ordered bars into feature rows. Rows lacking a full
// volatility window or holding any undefined value are dropped, so every
// returned row is complete. Order is chronological.
func ComputeFeatures(bars []models.Bar, volWindow int, periodsPerYear float64) []models.FeatureRow {
	if volWindow <= 1 {
		volWindow = DefaultVolWindow
	}
	if periodsPerYear <= 0 {
		periodsPerYear = TradingDaysPerYear
	}
	if len(bars) <= volWindow {
		return nil
	}
	rets := ComputeLogReturns(bars)
	out := make([]models.FeatureRow, 0, len(bars)-volWindow)
	for i := volWindow; i < len(bars); i++ {
		prev := bars[i-1].Close
		pct := math.NaN()
		if prev != 0 {
			pct = bars[i].Close/prev - 1
		}
		row := models.FeatureRow{
			Date:        bars[i].Date,
			DailyChange: bars[i].Close - bars[i].Open,
			PctChange:   pct,
			LogReturn:   rets[i],
			Close:       bars[i].Close,
			Volatility:  RealizedVolatility(rets, i, volWindow, periodsPerYear),
		}
		if !row.Complete() {
			continue
		}
		out = append(out, row)
	}
	return out
}
