package forecast

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"sync"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/internal/services/regression"
	"FinCast/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ErrInsufficientHistory is returned when an asset's history cannot fill
// enough look-back windows to fit a model.
var ErrInsufficientHistory = errors.New("insufficient history")

// MinTrainingRows is the smallest number of windowed rows a model is fitted on.
const MinTrainingRows = 2

// TrainerConfig holds the training parameters.
type TrainerConfig struct {
	Lookback           int
	VolWindow          int
	PeriodsPerYear     float64
	ValidationFraction float64
	Seed               uint64
	Workers            int
}

// Trainer fits one fresh model per asset.
type Trainer struct {
	regressor domsvc.Regressor
	cfg       TrainerConfig
	log       *logger.Logger
}

// TrainerOption customizes a Trainer.
type TrainerOption func(*Trainer)

// WithRegressor overrides the default ridge regressor.
func WithRegressor(r domsvc.Regressor) TrainerOption {
	return func(t *Trainer) {
		if r != nil {
			t.regressor = r
		}
	}
}

// WithTrainerLogger sets the trainer's logger.
func WithTrainerLogger(l *logger.Logger) TrainerOption {
	return func(t *Trainer) {
		if l != nil {
			t.log = l
		}
	}
}

// NewTrainer builds a trainer, filling unset parameters with defaults.
func NewTrainer(cfg TrainerConfig, opts ...TrainerOption) *Trainer {
	if cfg.VolWindow <= 0 {
		cfg.VolWindow = features.DefaultVolWindow
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = features.TradingDaysPerYear
	}
	if cfg.ValidationFraction < 0 || cfg.ValidationFraction >= 1 {
		cfg.ValidationFraction = 0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	t := &Trainer{
		regressor: regression.NewRidge(regression.DefaultLambda),
		cfg:       cfg,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Train fits a model for one asset's history. The validation rows are a
// seeded random sample; their RMSE is reported but never enforced.
func (t *Trainer) Train(ticker string, bars []models.Bar) (domsvc.Model, models.TrainingReport, error) {
	report := models.TrainingReport{Ticker: ticker}
	if t.cfg.Lookback < 2 {
		return nil, report, fmt.Errorf("train %s: lookback %d: %w", ticker, t.cfg.Lookback, ErrInsufficientHistory)
	}

	rows := features.BuildWindows(features.ComputeFeatures(bars, t.cfg.VolWindow, t.cfg.PeriodsPerYear), t.cfg.Lookback)
	report.Rows = len(rows)
	if len(rows) < MinTrainingRows {
		return nil, report, fmt.Errorf("train %s: %d windowed rows: %w", ticker, len(rows), ErrInsufficientHistory)
	}
	x, y, err := features.SplitAll(rows)
	if err != nil {
		return nil, report, fmt.Errorf("train %s: %w", ticker, err)
	}

	trainIdx, valIdx := t.splitIndices(ticker, len(x))
	xt, yt := pick(x, y, trainIdx)
	model, err := t.regressor.Fit(xt, yt)
	if err != nil {
		return nil, report, fmt.Errorf("train %s: fit: %w", ticker, err)
	}
	report.TrainRows = len(trainIdx)
	report.ValidationRows = len(valIdx)
	if len(valIdx) > 0 {
		xv, yv := pick(x, y, valIdx)
		report.ValidationRMSE = regression.RMSE(model, xv, yv)
	}
	return model, report, nil
}

func (t *Trainer) splitIndices(ticker string, n int) (train, val []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	nVal := int(float64(n) * t.cfg.ValidationFraction)
	if n-nVal < MinTrainingRows {
		nVal = 0
	}
	if nVal == 0 {
		return idx, nil
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	rng := rand.New(rand.NewPCG(t.cfg.Seed, h.Sum64()))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	val = append([]int(nil), idx[:nVal]...)
	train = append([]int(nil), idx[nVal:]...)
	sort.Ints(train)
	sort.Ints(val)
	return train, val
}

func pick(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i], ys[i] = x[j], y[j]
	}
	return xs, ys
}

// TrainingOutcome is the result of training every asset of a portfolio.
type TrainingOutcome struct {
	Models    map[string]domsvc.Model
	Reports   []models.TrainingReport
	Fallbacks []models.AssetFallback
}

// TrainAll trains every history concurrently. Untrainable assets are
// recorded as fallbacks; only context cancellation fails the call.
func (t *Trainer) TrainAll(ctx context.Context, histories map[string][]models.Bar) (*TrainingOutcome, error) {
	out := &TrainingOutcome{Models: make(map[string]domsvc.Model, len(histories))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Workers)
	for _, ticker := range sortedKeys(histories) {
		bars := histories[ticker]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			model, report, err := t.Train(ticker, bars)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				reason := models.FallbackTraining
				if errors.Is(err, ErrInsufficientHistory) {
					reason = models.FallbackInsufficient
				}
				t.log.Warn("Asset not trainable, forward-filling",
					logger.String("ticker", ticker),
					logger.String("reason", reason),
					logger.Error(err),
				)
				out.Fallbacks = append(out.Fallbacks, models.AssetFallback{Ticker: ticker, Reason: reason, Detail: err.Error()})
				return nil
			}
			t.log.Info("Model trained",
				logger.String("ticker", ticker),
				logger.Int("rows", report.Rows),
				logger.Int("validation_rows", report.ValidationRows),
				logger.Float64("validation_rmse", report.ValidationRMSE),
			)
			out.Models[ticker] = model
			out.Reports = append(out.Reports, report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(out.Reports, func(i, j int) bool { return out.Reports[i].Ticker < out.Reports[j].Ticker })
	sort.Slice(out.Fallbacks, func(i, j int) bool { return out.Fallbacks[i].Ticker < out.Fallbacks[j].Ticker })
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
