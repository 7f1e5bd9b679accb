package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatitudeWeights(t *testing.T) {
	w := LatitudeWeights([]float64{0, 60, -60}, 3)

	require.Equal(t, 3, w.NLat)
	require.Equal(t, 3, w.NLon)
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0, w.At(0, j), 1e-12)
		assert.InDelta(t, 0.5, w.At(1, j), 1e-12)
		assert.InDelta(t, 0.5, w.At(2, j), 1e-12)
	}
}

func TestWeightedMean_ExcludesUndefinedFromBothSums(t *testing.T) {
	f := Field{NLat: 2, NLon: 2, Values: []float64{1, math.NaN(), 3, 100}}
	w := Field{NLat: 2, NLon: 2, Values: []float64{1, 1000, 1, 0}}

	avg, err := WeightedMean(f, w)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, avg, 1e-12)
}

func TestWeightedMean_InvariantToWeightScaling(t *testing.T) {
	f := Field{NLat: 2, NLon: 3, Values: []float64{0.01, -0.02, math.NaN(), 0.04, 0.03, -0.01}}
	w := LatitudeWeights([]float64{25.25, 48.75}, 3)

	base, err := WeightedMean(f, w)
	require.NoError(t, err)

	for _, k := range []float64{1e-6, 0.5, 3, 1e9, -2} {
		scaled := Field{NLat: w.NLat, NLon: w.NLon, Values: make([]float64, len(w.Values))}
		for i, v := range w.Values {
			scaled.Values[i] = v * k
		}
		got, err := WeightedMean(f, scaled)
		require.NoError(t, err)
		assert.InDelta(t, base, got, 1e-12, "scale %g", k)
	}
}

func TestWeightedMean_AllUndefined(t *testing.T) {
	f := Field{NLat: 1, NLon: 2, Values: []float64{math.NaN(), math.NaN()}}

	avg, err := WeightedMean(f, LatitudeWeights([]float64{40}, 2))
	assert.ErrorIs(t, err, ErrNoDefinedCells)
	assert.True(t, math.IsNaN(avg))
}

func TestWeightedMean_ShapeMismatch(t *testing.T) {
	_, err := WeightedMean(NewField(2, 2), NewField(2, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}
