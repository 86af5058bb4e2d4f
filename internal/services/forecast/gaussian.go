package forecast

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/logger"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinAlignedReturns is the fewest common daily returns the gaussian method accepts.
const MinAlignedReturns = 2

// GaussianSimulator draws correlated daily returns from the multivariate
// normal fitted on the assets' aligned historical returns and compounds
// the value-weighted portfolio return.
type GaussianSimulator struct {
	workers int
	log     *logger.Logger
}

// NewGaussianSimulator returns a gaussian simulator running on workers goroutines.
func NewGaussianSimulator(workers int, log *logger.Logger) *GaussianSimulator {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GaussianSimulator{workers: workers, log: log}
}

type returnModel struct {
	mean    []float64
	chol    *mat.TriDense
	weights []float64
	value   float64
}

// Run generates paths of compounding portfolio value. Models in the input
// are ignored.
func (g *GaussianSimulator) Run(ctx context.Context, in SimulationInput) (*models.SimulationResult, error) {
	positions, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	rm, err := fitReturns(positions, in.Histories)
	if err != nil {
		return nil, err
	}
	seed := in.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	paths := make([][]float64, in.Paths)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for p := 0; p < in.Paths; p++ {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			paths[p] = rm.path(pathRNG(seed, p), in.Steps)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := Aggregate(paths, in.Steps)
	if err != nil {
		return nil, err
	}
	res.Method = models.MethodGaussian
	g.log.Debug("Gaussian simulation finished",
		logger.Int("paths", in.Paths),
		logger.Int("assets", len(rm.weights)),
	)
	return res, nil
}

func (rm *returnModel) path(rng *rand.Rand, steps int) []float64 {
	k := len(rm.mean)
	z := make([]float64, k)
	r := make([]float64, k)
	out := make([]float64, steps+1)
	out[0] = rm.value
	v := rm.value
	for t := 1; t <= steps; t++ {
		for i := range z {
			z[i] = rng.NormFloat64()
		}
		port := 0.0
		for i := 0; i < k; i++ {
			r[i] = rm.mean[i]
			if rm.chol != nil {
				for j := 0; j <= i; j++ {
					r[i] += rm.chol.At(i, j) * z[j]
				}
			}
			port += rm.weights[i] * r[i]
		}
		v *= 1 + port
		if v < 0 {
			v = 0
		}
		out[t] = v
	}
	return out
}

// fitReturns estimates mean and covariance of daily percentage returns over
// the dates every priced asset has in common.
func fitReturns(positions []position, histories map[string][]models.Bar) (*returnModel, error) {
	var (
		tickers []string
		qty     []float64
	)
	for _, p := range positions {
		if len(histories[p.ticker]) > 0 {
			tickers = append(tickers, p.ticker)
			qty = append(qty, p.qty)
		}
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("gaussian: no asset has history: %w", ErrInsufficientHistory)
	}

	closes := alignCloses(tickers, histories)
	if len(closes) < MinAlignedReturns+1 {
		return nil, fmt.Errorf("gaussian: %d aligned days: %w", len(closes), ErrInsufficientHistory)
	}
	k := len(tickers)
	n := len(closes) - 1
	data := make([]float64, 0, n*k)
	for d := 1; d <= n; d++ {
		for i := 0; i < k; i++ {
			prev := closes[d-1][i]
			ret := 0.0
			if prev > 0 {
				ret = closes[d][i]/prev - 1
			}
			data = append(data, ret)
		}
	}
	rets := mat.NewDense(n, k, data)

	mean := make([]float64, k)
	for i := 0; i < k; i++ {
		mean[i] = stat.Mean(mat.Col(nil, i, rets), nil)
	}
	cov := mat.NewSymDense(k, nil)
	stat.CovarianceMatrix(cov, rets, nil)

	rm := &returnModel{mean: mean, chol: choleskyWithJitter(cov), weights: make([]float64, k)}
	for i := range tickers {
		rm.weights[i] = qty[i] * lastClose(histories[tickers[i]])
		rm.value += rm.weights[i]
	}
	for i := range rm.weights {
		if rm.value > 0 {
			rm.weights[i] /= rm.value
		} else {
			rm.weights[i] = 0
		}
	}
	return rm, nil
}

// alignCloses returns, oldest first, the closes of every ticker on the dates
// all of them share.
func alignCloses(tickers []string, histories map[string][]models.Bar) [][]float64 {
	byDate := make(map[time.Time][]float64)
	var dates []time.Time
	for _, b := range histories[tickers[0]] {
		key := b.Date.Truncate(24 * time.Hour)
		if _, ok := byDate[key]; ok {
			continue
		}
		byDate[key] = []float64{b.Close}
		dates = append(dates, key)
	}
	for i := 1; i < len(tickers); i++ {
		for _, b := range histories[tickers[i]] {
			key := b.Date.Truncate(24 * time.Hour)
			if row, ok := byDate[key]; ok && len(row) == i {
				byDate[key] = append(row, b.Close)
			}
		}
	}
	out := make([][]float64, 0, len(dates))
	for _, d := range dates {
		if row := byDate[d]; len(row) == len(tickers) {
			out = append(out, row)
		}
	}
	return out
}

func lastClose(bars []models.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}

func choleskyWithJitter(cov *mat.SymDense) *mat.TriDense {
	k, _ := cov.Dims()
	jitter := 0.0
	for attempt := 0; attempt < 6; attempt++ {
		a := mat.NewSymDense(k, nil)
		a.CopySym(cov)
		for i := 0; i < k; i++ {
			a.SetSym(i, i, a.At(i, i)+jitter)
		}
		var chol mat.Cholesky
		if chol.Factorize(a) {
			var l mat.TriDense
			chol.LTo(&l)
			return &l
		}
		if jitter == 0 {
			jitter = 1e-12
		} else {
			jitter *= 100
		}
	}
	return nil
}
