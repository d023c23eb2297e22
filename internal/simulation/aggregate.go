package simulation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"pbloss-mcp/internal/model"
)

var ErrNoRuns = errors.New("no Monte Carlo runs to aggregate")

// Aggregate folds all runs so far into the sample's optimal age. It is
// recomputed from scratch on every call.
func Aggregate(runs []*model.MonteCarloRun) (model.OptimalAge, error) {
	if len(runs) == 0 {
		return model.OptimalAge{}, ErrNoRuns
	}
	grid := runs[0].PbLossAges

	// 1. Mean score curve
	meanScores, err := MeanScores(runs)
	if err != nil {
		return model.OptimalAge{}, err
	}
	idx := OptimalIndex(meanScores)

	// 2. Confidence interval from per-run optima
	lower, upper := ConfidenceInterval(runOptima(runs))

	// 3. Mean statistics at the aggregate optimum
	n := len(runs)
	ds := make([]float64, n)
	ps := make([]float64, n)
	invalid := make([]float64, n)
	scores := make([]float64, n)
	for i, r := range runs {
		st := r.Statistics[idx]
		ds[i] = st.TestStatistic.D
		ps[i] = st.TestStatistic.P
		invalid[i] = float64(st.NumberOfInvalidAges)
		scores[i] = st.Score
	}

	out := model.OptimalAge{
		Age:        grid[idx],
		LowerBound: lower,
		UpperBound: upper,
		Runs:       n,
	}
	out.MeanDValue, _ = stats.Mean(ds)
	out.MeanPValue, _ = stats.Mean(ps)
	out.MeanInvalidCount, _ = stats.Mean(invalid)
	out.MeanScore, _ = stats.Mean(scores)
	return out, nil
}

// MeanScores averages the runs' scores at each candidate age.
func MeanScores(runs []*model.MonteCarloRun) ([]float64, error) {
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	grid := runs[0].PbLossAges
	for _, r := range runs {
		if len(r.Statistics) != len(grid) {
			return nil, fmt.Errorf("run %d has %d statistics, want %d", r.RunNumber, len(r.Statistics), len(grid))
		}
	}

	meanScores := make([]float64, len(grid))
	column := make([]float64, len(runs))
	for g := range grid {
		for i, r := range runs {
			column[i] = r.Statistics[g].Score
		}
		m, err := stats.Mean(column)
		if err != nil {
			return nil, err
		}
		meanScores[g] = m
	}
	return meanScores, nil
}

// ConfidenceInterval returns the 2.5% and 97.5% order statistics.
func ConfidenceInterval(ages []float64) (lower, upper float64) {
	n := len(ages)
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, ages)
	sort.Float64s(sorted)

	lo := clampIndex(int(math.Floor(0.025*float64(n))), n)
	hi := clampIndex(int(math.Ceil(0.975*float64(n)))-1, n)
	return sorted[lo], sorted[hi]
}

func runOptima(runs []*model.MonteCarloRun) []float64 {
	out := make([]float64, len(runs))
	for i, r := range runs {
		out[i] = r.OptimalPbLossAge
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
