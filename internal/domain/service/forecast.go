package service

// Model predicts the next day's price change from a predictor vector.
// Implementations must be safe for concurrent Predict calls.
type Model interface {
	Predict(x []float64) float64
}

// Regressor fits a fresh Model. It must not retain state between fits.
type Regressor interface {
	Fit(x [][]float64, y []float64) (Model, error)
}
