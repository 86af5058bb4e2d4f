package regression

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(1, 2))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		x[i] = []float64{a, b}
		y[i] = 3*a - 2*b + 1
	}
	return x, y
}

func TestRidge_RecoversLinearRelation(t *testing.T) {
	x, y := linearData(500)
	model, err := NewRidge(1e-6).Fit(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1+3*0.5-2*0.25, model.Predict([]float64{0.5, 0.25}), 1e-3)
	assert.Less(t, RMSE(model, x, y), 1e-3)
}

func TestRidge_ShrinksWithLambda(t *testing.T) {
	x, y := linearData(100)
	small, err := NewRidge(1e-6).Fit(x, y)
	require.NoError(t, err)
	large, err := NewRidge(1e6).Fit(x, y)
	require.NoError(t, err)
	a, b := []float64{1, 0}, []float64{0, 0}
	assert.Less(t, abs(large.Predict(a)-large.Predict(b)), abs(small.Predict(a)-small.Predict(b)))
}

func TestRidge_ConstantColumn(t *testing.T) {
	x := [][]float64{{1, 5}, {2, 5}, {3, 5}, {4, 5}}
	y := []float64{2, 4, 6, 8}
	model, err := NewRidge(0).Fit(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, model.Predict([]float64{2.5, 5}), 1e-9)
}

func TestRidge_Errors(t *testing.T) {
	_, err := NewRidge(1).Fit(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyDesign)
	_, err = NewRidge(1).Fit([][]float64{{1}}, []float64{1, 2})
	assert.Error(t, err)
	_, err = NewRidge(1).Fit([][]float64{{1, 2}, {1}}, []float64{1, 2})
	assert.Error(t, err)
}

func TestLinearModel_WrongWidthPredictsMean(t *testing.T) {
	model, err := NewRidge(1).Fit([][]float64{{1}, {2}, {3}}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2.0, model.Predict([]float64{1, 2}))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
