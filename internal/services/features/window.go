package features

import (
	"errors"
	"fmt"
	"strings"

	"FinCast/internal/domain/models"
)

// ErrShortWindow is returned when a row or feature set cannot fill a window.
var ErrShortWindow = errors.New("not enough rows for look-back window")

// WindowColumns returns the columns of a windowed row for look-back l.
func WindowColumns(l int) []string {
	cols := make([]string, 0, l*len(models.FeatureNames))
	for k := 0; k < l; k++ {
		for _, f := range models.FeatureNames {
			cols = append(cols, models.ColumnName(f, k))
		}
	}
	return cols
}

// TargetColumn is the predicted column of a windowed row.
func TargetColumn() string { return models.ColumnName(models.ColDailyChange, 0) }

// TargetColumns is the current-day group that must never be a predictor.
func TargetColumns() []string {
	cols := make([]string, 0, len(models.FeatureNames))
	for _, f := range models.FeatureNames {
		cols = append(cols, models.ColumnName(f, 0))
	}
	return cols
}

// PredictorColumns returns the predictor columns for look-back l, in the
// order Split and LatestPredictors emit values.
func PredictorColumns(l int) []string {
	var out []string
	for _, c := range WindowColumns(l) {
		if !isCurrentDay(c) {
			out = append(out, c)
		}
	}
	return out
}

func isCurrentDay(col string) bool { return strings.HasSuffix(col, "_0") }

// BuildWindows concatenates each day with its l-1 predecessors, most recent
// first. One row is produced per current day c in [l, n-1]; fewer than l+1
// feature rows yield no output.
func BuildWindows(rows []models.FeatureRow, l int) []models.WindowedRow {
	if l < 1 || len(rows) < l+1 {
		return nil
	}
	cols := WindowColumns(l)
	out := make([]models.WindowedRow, 0, len(rows)-l)
	for c := l; c < len(rows); c++ {
		vals := make([]float64, 0, len(cols))
		for k := 0; k < l; k++ {
			vals = append(vals, rows[c-k].Values()...)
		}
		out = append(out, models.WindowedRow{Date: rows[c].Date, Columns: cols, Values: vals})
	}
	return out
}

// Split separates a windowed row into predictors and the current day's
// daily change. Every "_0" column is excluded from x.
func Split(row models.WindowedRow) ([]float64, float64, error) {
	if len(row.Columns) != len(row.Values) {
		return nil, 0, fmt.Errorf("split: %d columns for %d values", len(row.Columns), len(row.Values))
	}
	target := TargetColumn()
	var (
		y     float64
		found bool
	)
	x := make([]float64, 0, len(row.Values))
	for i, c := range row.Columns {
		if c == target {
			y = row.Values[i]
			found = true
		}
		if isCurrentDay(c) {
			continue
		}
		x = append(x, row.Values[i])
	}
	if !found {
		return nil, 0, fmt.Errorf("split: missing %s", target)
	}
	return x, y, nil
}

// SplitAll splits a set of windowed rows into a design matrix and targets.
func SplitAll(rows []models.WindowedRow) ([][]float64, []float64, error) {
	xs := make([][]float64, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	for _, r := range rows {
		x, y, err := Split(r)
		if err != nil {
			return nil, nil, err
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys, nil
}

// LatestPredictors builds the predictor vector for the day after the last
// feature row: offsets 1..l-1 are the l-1 most recent rows.
func LatestPredictors(rows []models.FeatureRow, l int) ([]float64, error) {
	if l < 2 || len(rows) < l-1 {
		return nil, ErrShortWindow
	}
	n := len(rows)
	x := make([]float64, 0, (l-1)*len(models.FeatureNames))
	for k := 1; k < l; k++ {
		x = append(x, rows[n-k].Values()...)
	}
	return x, nil
}
