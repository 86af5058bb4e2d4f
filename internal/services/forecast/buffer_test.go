package forecast

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"FinCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingBuffer_Truncates(t *testing.T) {
	hist := walkBars(100, 50, 1)
	buf := NewRollingBuffer(hist, 40, 20, 252)
	assert.Equal(t, 40, buf.Len())
	last, ok := buf.LastClose()
	require.True(t, ok)
	assert.Equal(t, hist[99].Close, last)
	assert.Len(t, buf.Features(), 20)

	for i := 0; i < 10; i++ {
		buf.AppendClose(last + float64(i))
	}
	assert.Equal(t, 40, buf.Len())
	assert.Len(t, buf.Features(), 20)
	for _, row := range buf.Features() {
		assert.True(t, row.Complete())
	}
}

func TestRollingBuffer_DoesNotMutateHistory(t *testing.T) {
	hist := flatBars(30, 10)
	buf := NewRollingBuffer(hist, 30, 20, 252)
	buf.AppendClose(12)
	assert.Equal(t, 10.0, hist[0].Close)
	assert.Equal(t, 10.0, hist[29].Close)
}

func TestRollingBuffer_AppendClose(t *testing.T) {
	friday := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	buf := NewRollingBuffer([]models.Bar{{Date: friday, Open: 9, High: 10, Low: 9, Close: 10}}, 5, 20, 252)
	buf.AppendClose(8)

	assert.Equal(t, 2, buf.Len())
	assert.Equal(t, -2.0, buf.LastDailyChange())
	c, _ := buf.LastClose()
	assert.Equal(t, 8.0, c)
	assert.Equal(t, time.Monday, buf.bars[1].Date.Weekday())
	assert.Equal(t, 10.0, buf.bars[1].High)
	assert.Equal(t, 8.0, buf.bars[1].Low)
}

func TestNoisePolicy(t *testing.T) {
	p := NoisePolicy{Scale: 2, Cap: 5}
	assert.Equal(t, 2.0, p.Sigma(1))
	assert.Equal(t, 2.0, p.Sigma(-1))
	assert.Equal(t, 5.0, p.Sigma(10))
	assert.Equal(t, 0.0, p.Sigma(0))
	assert.Equal(t, 0.0, p.Sigma(math.NaN()))

	rng := rand.New(rand.NewPCG(1, 2))
	assert.Equal(t, 0.0, p.Draw(rng, 0))
	assert.NotEqual(t, 0.0, p.Draw(rng, 1))
}
