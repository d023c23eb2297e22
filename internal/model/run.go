package model

import (
	"math"

	"pbloss-mcp/internal/concordia"
)

// TestStatistic is the raw output of a two-sample test.
type TestStatistic struct {
	D float64 `json:"d"`
	P float64 `json:"p"`
}

// Reconstruction is a discordant spot projected onto the curve for one
// candidate Pb-loss age. OK is false when the chord has no valid intersection.
type Reconstruction struct {
	Age float64
	OK  bool
}

// PbLossAgeStatistic is the result of scoring one candidate age within a run.
type PbLossAgeStatistic struct {
	PbLossAge           float64       `json:"pb_loss_age"`
	ValidConcordantAges []float64     `json:"valid_concordant_ages"`
	ValidDiscordantAges []float64     `json:"valid_discordant_ages"`
	NumberOfAges        int           `json:"number_of_ages"`
	NumberOfInvalidAges int           `json:"number_of_invalid_ages"`
	TestStatistic       TestStatistic `json:"test_statistic"`
	TestScore           float64       `json:"test_score"`
	Score               float64       `json:"score"`
}

// MonteCarloRun is one simulated realisation of every spot's ratios. It is
// never modified after the engine hands it out.
type MonteCarloRun struct {
	RunNumber  int             `json:"run_number"`
	SampleName string          `json:"sample_name"`
	System     ConcordiaSystem `json:"system"`

	ConcordantX    []float64 `json:"concordant_x"`
	ConcordantY    []float64 `json:"concordant_y"`
	DiscordantX    []float64 `json:"discordant_x"`
	DiscordantY    []float64 `json:"discordant_y"`
	ConcordantAges []float64 `json:"concordant_ages"`

	// Statistics is aligned index-for-index with PbLossAges.
	PbLossAges []float64            `json:"pb_loss_ages"`
	Statistics []PbLossAgeStatistic `json:"statistics"`

	OptimalIndex     int     `json:"optimal_index"`
	OptimalPbLossAge float64 `json:"optimal_pb_loss_age"`
	OptimalX         float64 `json:"optimal_x"`
	OptimalY         float64 `json:"optimal_y"`
}

// OptimalStatistic returns the statistic at the run's optimal age.
func (r *MonteCarloRun) OptimalStatistic() PbLossAgeStatistic {
	return r.Statistics[r.OptimalIndex]
}

// StatisticAt returns the statistic recorded for exactly this candidate age.
func (r *MonteCarloRun) StatisticAt(age float64) (PbLossAgeStatistic, bool) {
	for i, a := range r.PbLossAges {
		if a == age {
			return r.Statistics[i], true
		}
	}
	return PbLossAgeStatistic{}, false
}

// Scores returns the score curve over the candidate grid.
func (r *MonteCarloRun) Scores() []float64 {
	scores := make([]float64, len(r.Statistics))
	for i, st := range r.Statistics {
		scores[i] = st.Score
	}
	return scores
}

// HeatmapColumns bins the run's scores into resolution columns spanning
// [minAge, maxAge]. Empty columns take a distance-weighted blend of the
// nearest populated columns on each side; columns with no populated
// neighbour on one side are NaN.
func (r *MonteCarloRun) HeatmapColumns(minAge, maxAge float64, resolution int) []float64 {
	out := make([]float64, resolution)
	if resolution <= 0 {
		return out
	}
	inc := (maxAge - minAge) / float64(resolution)

	cols := make([][]int, resolution)
	for i, age := range r.PbLossAges {
		col := resolution - 1
		if age != maxAge {
			col = int(math.Floor((age - minAge) / inc))
		}
		if col < 0 || col >= resolution {
			continue
		}
		cols[col] = append(cols[col], i)
	}

	for col := 0; col < resolution; col++ {
		prev, next := col, col
		for prev > 0 && len(cols[prev]) == 0 {
			prev--
		}
		for next < resolution-1 && len(cols[next]) == 0 {
			next++
		}
		if len(cols[prev]) == 0 || len(cols[next]) == 0 {
			out[col] = math.NaN()
			continue
		}

		if prev != next {
			prevScore := r.Statistics[cols[prev][len(cols[prev])-1]].Score
			nextScore := r.Statistics[cols[next][0]].Score
			prevDiff := float64(col - prev)
			nextDiff := float64(next - col)
			out[col] = (nextDiff*prevScore + prevDiff*nextScore) / (prevDiff + nextDiff)
			continue
		}

		sum := 0.0
		for _, i := range cols[col] {
			sum += r.Statistics[i].Score
		}
		out[col] = sum / float64(len(cols[col]))
	}
	return out
}

// RunRow is the export form of a run.
type RunRow struct {
	SampleName   string  `json:"sample_name"`
	RunNumber    int     `json:"run_number"`
	OptimalAgeMa float64 `json:"optimal_age_ma"`
}

// ToRow summarises the run for export.
func (r *MonteCarloRun) ToRow() RunRow {
	return RunRow{
		SampleName:   r.SampleName,
		RunNumber:    r.RunNumber,
		OptimalAgeMa: r.OptimalPbLossAge / concordia.Ma,
	}
}

// OptimalAge is the aggregate answer across all runs of a sample.
type OptimalAge struct {
	Age              float64 `json:"age"`
	LowerBound       float64 `json:"lower_bound"`
	UpperBound       float64 `json:"upper_bound"`
	MeanDValue       float64 `json:"mean_d_value"`
	MeanPValue       float64 `json:"mean_p_value"`
	MeanInvalidCount float64 `json:"mean_invalid_count"`
	MeanScore        float64 `json:"mean_score"`
	Runs             int     `json:"runs"`
}
