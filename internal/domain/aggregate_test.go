package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-12

func TestAggregateBin_Mean(t *testing.T) {
	ms := []Measurement{{Value: 281.2}, {Value: 280.9}, {Value: 281.7}, {Value: 279.4}}

	agg, err := AggregateBin(ms, SpatialRules)
	require.NoError(t, err)

	assert.Equal(t, 4, agg.N)
	assert.InDelta(t, (281.2+280.9+281.7+279.4)/4, agg.Mean, tolerance)
}

func TestAggregateBin_UncorrelatedShrinks(t *testing.T) {
	const e = 0.3
	for _, n := range []int{1, 2, 5, 10, 100} {
		ms := make([]Measurement, n)
		for i := range ms {
			ms[i] = Measurement{Value: 1, UUcor: e}
		}

		agg, err := AggregateBin(ms, SpatialRules)
		require.NoError(t, err)
		assert.InDelta(t, e/math.Sqrt(float64(n)), agg.RawUcor, tolerance, "n=%d", n)
	}
}

func TestAggregateBin_CorrelatedDoesNotShrink(t *testing.T) {
	const c = 0.15
	for _, n := range []int{1, 3, 10, 50} {
		ms := make([]Measurement, n)
		for i := range ms {
			ms[i] = Measurement{Value: float64(i), UScor: c, UTcor: 2 * c}
		}

		agg, err := AggregateBin(ms, SpatialRules)
		require.NoError(t, err)
		assert.InDelta(t, c, agg.RawScor, tolerance, "n=%d", n)
		assert.InDelta(t, 2*c, agg.RawTcor, tolerance, "n=%d", n)
	}
}

func TestAggregateBin_CorrelatedIsArithmeticMean(t *testing.T) {
	ms := []Measurement{{UScor: 0.1, UTcor: 0.4}, {UScor: 0.3, UTcor: 0.0}, {UScor: 0.2, UTcor: 0.2}}

	agg, err := AggregateBin(ms, SpatialRules)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, agg.RawScor, tolerance)
	assert.InDelta(t, 0.2, agg.RawTcor, tolerance)
}

func TestAggregateBin_SampleStd(t *testing.T) {
	t.Run("single sample has no dispersion", func(t *testing.T) {
		agg, err := AggregateBin([]Measurement{{Value: 42, UUcor: 0.5}}, SpatialRules)
		require.NoError(t, err)
		assert.Equal(t, 0.0, agg.SampleStd)
		assert.Equal(t, 0.5, agg.RawUcor)
	})

	t.Run("standard error of the mean", func(t *testing.T) {
		values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
		ms := make([]Measurement, len(values))
		for i, v := range values {
			ms[i] = Measurement{Value: v}
		}

		agg, err := AggregateBin(ms, SpatialRules)
		require.NoError(t, err)

		// mean 5, Σ(x-mean)² = 32, n(n-1) = 56
		assert.InDelta(t, math.Sqrt(32.0/56.0), agg.SampleStd, tolerance)
	})

	t.Run("identical values", func(t *testing.T) {
		agg, err := AggregateBin([]Measurement{{Value: 3}, {Value: 3}, {Value: 3}}, SpatialRules)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, agg.SampleStd, tolerance)
	})
}

func TestAggregateBin_MissingComponentsAreZero(t *testing.T) {
	agg, err := AggregateBin([]Measurement{{Value: 1, UUcor: 0.2}, {Value: 2, UUcor: 0.2}}, SpatialRules)
	require.NoError(t, err)
	assert.Equal(t, 0.0, agg.RawScor)
	assert.Equal(t, 0.0, agg.RawTcor)
}

func TestAggregateBin_RulesSelectReduction(t *testing.T) {
	ms := []Measurement{{UScor: 0.3}, {UScor: 0.4}}

	mean, err := AggregateBin(ms, StageRules{Scor: Correlated})
	require.NoError(t, err)
	assert.InDelta(t, 0.35, mean.RawScor, tolerance)

	rss, err := AggregateBin(ms, StageRules{Scor: Uncorrelated})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, rss.RawScor, tolerance) // sqrt(0.09+0.16)/2
}

func TestAggregateBin_Empty(t *testing.T) {
	_, err := AggregateBin(nil, SpatialRules)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestCorrelation_String(t *testing.T) {
	assert.Equal(t, "uncorrelated", Uncorrelated.String())
	assert.Equal(t, "correlated", Correlated.String())
}
