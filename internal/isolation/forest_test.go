package isolation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianCloud(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	points := make([][]float64, n)
	for i := range points {
		points[i] = []float64{40 + rng.NormFloat64()*3, 30 + rng.NormFloat64()*5}
	}
	return points
}

func TestFit_FlagsFarOutlier(t *testing.T) {
	f, err := Fit(context.Background(), gaussianCloud(300, 1), DefaultConfig())
	require.NoError(t, err)

	assert.True(t, f.IsOutlier([]float64{5, 30}))
	assert.True(t, f.IsOutlier([]float64{40, 150}))
	assert.False(t, f.IsOutlier([]float64{40, 30}))
}

func TestFit_ContaminationFraction(t *testing.T) {
	points := gaussianCloud(500, 2)
	f, err := Fit(context.Background(), points, DefaultConfig())
	require.NoError(t, err)

	outliers := 0
	for _, p := range points {
		if f.IsOutlier(p) {
			outliers++
		}
	}
	assert.InDelta(t, 50, outliers, 5)
}

func TestFit_Deterministic(t *testing.T) {
	points := gaussianCloud(200, 3)
	cfg := DefaultConfig()

	a, err := Fit(context.Background(), points, cfg)
	require.NoError(t, err)
	cfg.Workers = 1
	b, err := Fit(context.Background(), points, cfg)
	require.NoError(t, err)

	probe := []float64{12, 44}
	assert.Equal(t, a.Score(probe), b.Score(probe))
	assert.Equal(t, a.Threshold(), b.Threshold())
}

func TestScore_Range(t *testing.T) {
	f, err := Fit(context.Background(), gaussianCloud(100, 4), DefaultConfig())
	require.NoError(t, err)

	for _, p := range [][]float64{{0, 0}, {40, 30}, {1000, -1000}} {
		s := f.Score(p)
		assert.Greater(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestFit_ConstantData(t *testing.T) {
	points := make([][]float64, 60)
	for i := range points {
		points[i] = []float64{40, 30}
	}
	f, err := Fit(context.Background(), points, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, f.IsOutlier([]float64{40, 30}))
}

func TestFit_Validation(t *testing.T) {
	_, err := Fit(context.Background(), nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Contamination = 0
	_, err = Fit(context.Background(), gaussianCloud(10, 1), cfg)
	assert.Error(t, err)
}

func TestAveragePathLength(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLength(1))
	assert.Equal(t, 1.0, averagePathLength(2))
	assert.InDelta(t, 10.24, averagePathLength(256), 0.01)
}
