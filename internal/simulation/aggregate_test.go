package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbloss-mcp/internal/model"
)

func fakeRun(n int, grid []float64, scores []float64) *model.MonteCarloRun {
	stats := make([]model.PbLossAgeStatistic, len(grid))
	for i := range grid {
		stats[i] = model.PbLossAgeStatistic{
			PbLossAge:           grid[i],
			Score:               scores[i],
			TestStatistic:       model.TestStatistic{D: scores[i], P: 1 - scores[i]},
			NumberOfInvalidAges: i,
		}
	}
	idx := OptimalIndex(scores)
	return &model.MonteCarloRun{RunNumber: n, PbLossAges: grid, Statistics: stats, OptimalIndex: idx, OptimalPbLossAge: grid[idx]}
}

func TestAggregate_MeanCurve(t *testing.T) {
	grid := []float64{100, 200, 300, 400}
	runs := []*model.MonteCarloRun{
		fakeRun(1, grid, []float64{0.9, 0.2, 0.5, 0.8}),
		fakeRun(2, grid, []float64{0.9, 0.6, 0.3, 0.8}),
		fakeRun(3, grid, []float64{0.9, 0.4, 0.4, 0.8}),
	}

	got, err := Aggregate(runs)
	require.NoError(t, err)

	// Mean curve is [0.9, 0.4, 0.4, 0.8]: interior plateau at 1..2, midpoint 1.
	assert.Equal(t, 200.0, got.Age)
	assert.Equal(t, 3, got.Runs)
	assert.InDelta(t, 0.4, got.MeanScore, 1e-12)
	assert.InDelta(t, 0.4, got.MeanDValue, 1e-12)
	assert.InDelta(t, 0.6, got.MeanPValue, 1e-12)
	assert.InDelta(t, 1.0, got.MeanInvalidCount, 1e-12)

	// Per-run optima are 200, 300, 200 (midpoint of the 1..2 plateau).
	assert.Equal(t, 200.0, got.LowerBound)
	assert.Equal(t, 300.0, got.UpperBound)
}

func TestAggregate_NoRuns(t *testing.T) {
	_, err := Aggregate(nil)
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestAggregate_MismatchedGrid(t *testing.T) {
	a := fakeRun(1, []float64{1, 2}, []float64{0.1, 0.2})
	b := fakeRun(2, []float64{1, 2, 3}, []float64{0.1, 0.2, 0.3})
	_, err := Aggregate([]*model.MonteCarloRun{a, b})
	assert.Error(t, err)
}

func TestConfidenceInterval(t *testing.T) {
	tests := []struct {
		name      string
		ages      []float64
		wantLower float64
		wantUpper float64
	}{
		{"single", []float64{5}, 5, 5},
		{"two", []float64{9, 1}, 1, 9},
		{"twenty", seq(20), 0, 19},
		{"hundred", seq(100), 2, 97},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := ConfidenceInterval(tt.ages)
			if lo != tt.wantLower || hi != tt.wantUpper {
				t.Errorf("ConfidenceInterval = (%v, %v), want (%v, %v)", lo, hi, tt.wantLower, tt.wantUpper)
			}
		})
	}
}

// seq returns n-1 down to 0.
func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(n - 1 - i)
	}
	return out
}
