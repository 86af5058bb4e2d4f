package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	paths := [][]float64{
		{10, 11, 1},
		{10, 9, 2},
		{10, 12, 3},
		{10, 8, 4},
		{10, 10, 5},
	}
	res, err := Aggregate(paths, 2)
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.InitialValue)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, res.FinalValues())

	s := res.Summary
	require.NotNil(t, s)
	assert.Equal(t, 5, s.Paths)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.P50)
}

func TestAggregate_RejectsRaggedPaths(t *testing.T) {
	_, err := Aggregate([][]float64{{1, 2, 3}, {1, 2}}, 2)
	assert.Error(t, err)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Nil(t, Summarize(nil))
	s := Summarize([]float64{7})
	require.NotNil(t, s)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 7.0, s.P05)
}
