package forecast

import (
	"fmt"
	"sort"

	"FinCast/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Aggregate collects paths into a result. Every path must hold steps+1 values.
func Aggregate(paths [][]float64, steps int) (*models.SimulationResult, error) {
	for i, p := range paths {
		if len(p) != steps+1 {
			return nil, fmt.Errorf("aggregate: path %d has %d values, want %d", i, len(p), steps+1)
		}
	}
	res := &models.SimulationResult{Steps: steps, Paths: paths}
	if len(paths) > 0 {
		res.InitialValue = paths[0][0]
	}
	res.Summary = Summarize(res.FinalValues())
	return res, nil
}

// Summarize returns distribution statistics of final values, or nil when empty.
func Summarize(finals []float64) *models.Summary {
	if len(finals) == 0 {
		return nil
	}
	sorted := append([]float64(nil), finals...)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return &models.Summary{
		Paths:  len(sorted),
		Mean:   mean,
		StdDev: std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P05:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:    stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
}
