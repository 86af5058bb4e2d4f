package regression

import (
	"errors"
	"fmt"
	"math"

	domsvc "FinCast/internal/domain/service"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyDesign is returned when there is nothing to fit.
var ErrEmptyDesign = errors.New("empty design matrix")

// DefaultLambda is the L2 penalty applied to standardized coefficients.
const DefaultLambda = 1.0

// Ridge fits an L2-regularized linear model on standardized predictors.
type Ridge struct {
	Lambda float64
}

// NewRidge returns a ridge regressor; non-positive lambda uses DefaultLambda.
func NewRidge(lambda float64) *Ridge {
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	return &Ridge{Lambda: lambda}
}

// LinearModel is an immutable fitted ridge model.
type LinearModel struct {
	mean      []float64
	scale     []float64
	coef      []float64
	intercept float64
}

// Fit solves (XᵀX + λI)β = Xᵀy on centered, scaled columns.
func (r *Ridge) Fit(x [][]float64, y []float64) (domsvc.Model, error) {
	n := len(x)
	if n == 0 || len(x[0]) == 0 {
		return nil, ErrEmptyDesign
	}
	if len(y) != n {
		return nil, fmt.Errorf("ridge: %d rows but %d targets", n, len(y))
	}
	p := len(x[0])

	mean := make([]float64, p)
	scale := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range x {
			if len(x[i]) != p {
				return nil, fmt.Errorf("ridge: row %d has %d columns, want %d", i, len(x[i]), p)
			}
			col[i] = x[i][j]
		}
		m, s := stat.MeanStdDev(col, nil)
		if s == 0 || math.IsNaN(s) {
			s = 1
		}
		mean[j], scale[j] = m, s
	}
	yMean := stat.Mean(y, nil)

	data := make([]float64, 0, n*p)
	for i := range x {
		for j := 0; j < p; j++ {
			data = append(data, (x[i][j]-mean[j])/scale[j])
		}
	}
	xs := mat.NewDense(n, p, data)
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - yMean
	}
	yv := mat.NewVecDense(n, yc)

	var gram mat.SymDense
	gram.SymOuterK(1, xs.T())
	lambda := r.Lambda
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(xs.T(), yv)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return nil, errors.New("ridge: gram matrix not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return nil, fmt.Errorf("ridge solve: %w", err)
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.AtVec(j)
	}
	return &LinearModel{mean: mean, scale: scale, coef: coef, intercept: yMean}, nil
}

// Predict returns the model output for x. A vector of the wrong width
// predicts the training mean.
func (m *LinearModel) Predict(x []float64) float64 {
	if len(x) != len(m.coef) {
		return m.intercept
	}
	out := m.intercept
	for j, v := range x {
		out += m.coef[j] * (v - m.mean[j]) / m.scale[j]
	}
	return out
}

// RMSE is the root mean squared error of model on (x, y).
func RMSE(model domsvc.Model, x [][]float64, y []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := range x {
		d := model.Predict(x[i]) - y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(x)))
}

var _ domsvc.Regressor = (*Ridge)(nil)
