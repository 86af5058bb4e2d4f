package forecast

import (
	"context"
	"errors"
	"testing"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRegressor struct{}

func (failingRegressor) Fit([][]float64, []float64) (domsvc.Model, error) {
	return nil, errors.New("singular")
}

type countingRegressor struct{ widths []int }

func (c *countingRegressor) Fit(x [][]float64, _ []float64) (domsvc.Model, error) {
	c.widths = append(c.widths, len(x[0]))
	return constModel(0), nil
}

func TestTrainer_Train(t *testing.T) {
	trainer := NewTrainer(TrainerConfig{Lookback: 5, ValidationFraction: 0.2, Seed: 3})
	model, report, err := trainer.Train("AAPL", walkBars(200, 100, 1))
	require.NoError(t, err)
	require.NotNil(t, model)

	// 200 bars leave 180 feature rows after the volatility warm-up.
	assert.Equal(t, 175, report.Rows)
	assert.Equal(t, 35, report.ValidationRows)
	assert.Equal(t, 140, report.TrainRows)
	assert.Greater(t, report.ValidationRMSE, 0.0)
}

func TestTrainer_PredictorWidthExcludesCurrentDay(t *testing.T) {
	reg := &countingRegressor{}
	trainer := NewTrainer(TrainerConfig{Lookback: 4}, WithRegressor(reg))
	_, _, err := trainer.Train("AAPL", walkBars(60, 100, 2))
	require.NoError(t, err)
	require.Len(t, reg.widths, 1)
	assert.Equal(t, 3*len(models.FeatureNames), reg.widths[0])
}

func TestTrainer_SameSeedSameSplit(t *testing.T) {
	bars := walkBars(150, 80, 5)
	a := NewTrainer(TrainerConfig{Lookback: 5, ValidationFraction: 0.25, Seed: 10})
	b := NewTrainer(TrainerConfig{Lookback: 5, ValidationFraction: 0.25, Seed: 10})
	_, ra, err := a.Train("X", bars)
	require.NoError(t, err)
	_, rb, err := b.Train("X", bars)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}

func TestTrainer_InsufficientHistory(t *testing.T) {
	trainer := NewTrainer(TrainerConfig{Lookback: 5})
	_, _, err := trainer.Train("MSFT", flatBars(5, 300))
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, _, err = NewTrainer(TrainerConfig{Lookback: 1}).Train("MSFT", flatBars(100, 300))
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestTrainer_TrainAllRecordsFallbacks(t *testing.T) {
	histories := map[string][]models.Bar{
		"AAPL": walkBars(100, 150, 1),
		"MSFT": flatBars(4, 300),
		"TSLA": walkBars(100, 200, 2),
	}
	trainer := NewTrainer(TrainerConfig{Lookback: 5, Workers: 2})
	out, err := trainer.TrainAll(context.Background(), histories)
	require.NoError(t, err)
	assert.Len(t, out.Models, 2)
	require.Len(t, out.Reports, 2)
	assert.Equal(t, "AAPL", out.Reports[0].Ticker)
	assert.Equal(t, "TSLA", out.Reports[1].Ticker)
	require.Len(t, out.Fallbacks, 1)
	assert.Equal(t, "MSFT", out.Fallbacks[0].Ticker)
	assert.Equal(t, models.FallbackInsufficient, out.Fallbacks[0].Reason)
}

func TestTrainer_FitFailureIsFallback(t *testing.T) {
	trainer := NewTrainer(TrainerConfig{Lookback: 5}, WithRegressor(failingRegressor{}))
	out, err := trainer.TrainAll(context.Background(), map[string][]models.Bar{"AAPL": walkBars(100, 150, 1)})
	require.NoError(t, err)
	assert.Empty(t, out.Models)
	require.Len(t, out.Fallbacks, 1)
	assert.Equal(t, models.FallbackTraining, out.Fallbacks[0].Reason)
}

func TestTrainer_TrainAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTrainer(TrainerConfig{Lookback: 5}).TrainAll(ctx, map[string][]models.Bar{"AAPL": walkBars(100, 150, 1)})
	assert.ErrorIs(t, err, context.Canceled)
}
