package models

import (
	"fmt"
	"math"
	"time"
)

// Feature column names, in the order FeatureRow.Values returns them.
const (
	ColDailyChange = "DailyChange"
	ColPctChange   = "PctChange"
	ColLogReturns  = "LogReturns"
	ColClose       = "Close"
	ColVolatility  = "Volatility"
)

// FeatureNames lists the per-day feature columns.
var FeatureNames = []string{ColDailyChange, ColPctChange, ColLogReturns, ColClose, ColVolatility}

// FeatureRow holds the engineered features of one trading day.
type FeatureRow struct {
	Date        time.Time `json:"date"`
	DailyChange float64   `json:"daily_change"`
	PctChange   float64   `json:"pct_change"`
	LogReturn   float64   `json:"log_return"`
	Close       float64   `json:"close"`
	Volatility  float64   `json:"volatility"`
}

// Values returns the features in FeatureNames order.
func (r FeatureRow) Values() []float64 {
	return []float64{r.DailyChange, r.PctChange, r.LogReturn, r.Close, r.Volatility}
}

// Complete reports whether every feature is a finite number.
func (r FeatureRow) Complete() bool {
	for _, v := range r.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// WindowedRow is L feature rows concatenated horizontally, most recent first.
type WindowedRow struct {
	Date    time.Time
	Columns []string
	Values  []float64
}

// ColumnName returns the windowed column name of feature at offset.
func ColumnName(feature string, offset int) string {
	return fmt.Sprintf("%s_%d", feature, offset)
}
