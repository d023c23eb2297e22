package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CalculationSettings)
		field  string
	}{
		{"defaults", func(*CalculationSettings) {}, ""},
		{"cutoff negative", func(s *CalculationSettings) { s.DiscordancePercentageCutoff = -0.1 }, "discordance_percentage_cutoff"},
		{"cutoff above one", func(s *CalculationSettings) { s.DiscordancePercentageCutoff = 1.5 }, "discordance_percentage_cutoff"},
		{"ellipse sigmas", func(s *CalculationSettings) {
			s.ClassificationMethod = ErrorEllipse
			s.DiscordanceEllipseSigmas = 3
		}, "discordance_ellipse_sigmas"},
		{"ellipse ignores cutoff", func(s *CalculationSettings) {
			s.ClassificationMethod = ErrorEllipse
			s.DiscordancePercentageCutoff = 7
		}, ""},
		{"min equals max", func(s *CalculationSettings) { s.MinimumPbLossAge = s.MaximumPbLossAge }, "pb_loss_age_range"},
		{"min above max", func(s *CalculationSettings) { s.MinimumPbLossAge = 5000e6 }, "pb_loss_age_range"},
		{"NaN minimum", func(s *CalculationSettings) { s.MinimumPbLossAge = math.NaN() }, "pb_loss_age_bounds"},
		{"infinite maximum", func(s *CalculationSettings) { s.MaximumPbLossAge = math.Inf(1) }, "pb_loss_age_bounds"},
		{"negative infinite minimum", func(s *CalculationSettings) { s.MinimumPbLossAge = math.Inf(-1) }, "pb_loss_age_bounds"},
		{"one grid point", func(s *CalculationSettings) { s.PbLossAgeSamples = 1 }, "pb_loss_age_samples"},
		{"zero runs", func(s *CalculationSettings) { s.MonteCarloRuns = 0 }, "monte_carlo_runs"},
		{"unknown method", func(s *CalculationSettings) { s.ClassificationMethod = 9 }, "classification_method"},
		{"unknown test", func(s *CalculationSettings) { s.DissimilarityTest = 4 }, "dissimilarity_test"},
		{"unknown system", func(s *CalculationSettings) { s.System = 2 }, "system"},
	}

	messages := map[string]string{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultCalculationSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			if prev, ok := messages[verr.Field]; ok {
				assert.Equal(t, prev, verr.Message)
			}
			for f, m := range messages {
				if f != verr.Field {
					assert.NotEqual(t, m, verr.Message, "each rule has its own message")
				}
			}
			messages[verr.Field] = verr.Message
		})
	}
}

func TestClone_IsIndependent(t *testing.T) {
	s := DefaultCalculationSettings()
	c := s.Clone()
	s.MonteCarloRuns = 1
	assert.Equal(t, 50, c.MonteCarloRuns)
}

func TestPbLossAges(t *testing.T) {
	s := DefaultCalculationSettings()
	s.MinimumPbLossAge, s.MaximumPbLossAge, s.PbLossAgeSamples = 100, 500, 5
	assert.Equal(t, []float64{100, 200, 300, 400, 500}, s.PbLossAges())
}

func TestParseEnums(t *testing.T) {
	m, err := ParseClassificationMethod("Ellipse")
	require.NoError(t, err)
	assert.Equal(t, ErrorEllipse, m)

	sys, err := ParseConcordiaSystem("TW")
	require.NoError(t, err)
	assert.Equal(t, TeraWasserburg, sys)

	sys, err = ParseConcordiaSystem("wetherill")
	require.NoError(t, err)
	assert.Equal(t, Wetherill, sys)

	test, err := ParseDissimilarityTest("ks")
	require.NoError(t, err)
	assert.Equal(t, KolmogorovSmirnov, test)

	_, err = ParseConcordiaSystem("cartesian")
	assert.Error(t, err)
	_, err = ParseErrorType("ppm")
	assert.Error(t, err)
}

func TestErrorConversions(t *testing.T) {
	tests := []struct {
		value, err float64
		form       ErrorType
		sigmas     int
		want       float64
	}{
		{10, 2, Absolute, 2, 1},
		{10, 2, Absolute, 1, 2},
		{10, 5, PercentageError, 1, 0.5},
		{10, 5, PercentageError, 2, 0.25},
	}
	for _, tt := range tests {
		got := To1StdDev(tt.value, tt.err, tt.form, tt.sigmas)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("To1StdDev(%v, %v, %v, %d) = %v, want %v", tt.value, tt.err, tt.form, tt.sigmas, got, tt.want)
		}
		back := From1StdDev(tt.value, got, tt.form, tt.sigmas)
		if math.Abs(back-tt.err) > 1e-12 {
			t.Errorf("From1StdDev round trip = %v, want %v", back, tt.err)
		}
	}
	assert.InDelta(t, 20.0, ConvertFromStdDevWithoutSigmas(10, 2, PercentageError), 1e-12)
	assert.Equal(t, 2.0, ConvertFromStdDevWithoutSigmas(10, 2, Absolute))
}

func TestNewSpot_Validity(t *testing.T) {
	ok := NewSpot(0, "s", Measurement{Value: 4, Error: 0.1, Sigmas: 1}, Measurement{Value: 0.1, Error: 0.01, Sigmas: 1}, nil)
	assert.True(t, ok.Valid)

	missing := NewSpot(1, "s", Measurement{Value: 4}, Measurement{Value: 0.1}, []string{"pb207pb206_error"})
	assert.False(t, missing.Valid)

	zero := NewSpot(2, "s", Measurement{Value: 0}, Measurement{Value: 0.1}, nil)
	assert.False(t, zero.Valid)

	nanErr := NewSpot(3, "s", Measurement{Value: 4, Error: math.NaN()}, Measurement{Value: 0.1}, nil)
	assert.False(t, nanErr.Valid)
}

func TestSpot_WetherillConversion(t *testing.T) {
	s := NewSpot(0, "s",
		Measurement{Value: 4, Error: 0.04, Type: Absolute, Sigmas: 1},
		Measurement{Value: 0.1, Error: 1, Type: PercentageError, Sigmas: 1}, nil)

	v, e, ok := s.Pb206U238()
	require.True(t, ok)
	assert.InDelta(t, 0.25, v, 1e-12)
	assert.InDelta(t, 0.0025, e, 1e-12)

	v, e, ok = s.Pb207U235()
	require.True(t, ok)
	assert.InDelta(t, 137.818*0.1/4, v, 1e-12)
	assert.InDelta(t, v*math.Hypot(0.01, 0.01), e, 1e-12)

	x, xErr, y, yErr, ok := s.Coordinates(Wetherill)
	require.True(t, ok)
	assert.InDelta(t, 137.818*0.1/4, x, 1e-12)
	assert.InDelta(t, 0.25, y, 1e-12)
	assert.Greater(t, xErr, 0.0)
	assert.Greater(t, yErr, 0.0)

	degenerate := &Spot{U238Pb206: Measurement{Value: 0}, Pb207Pb206: Measurement{Value: 0.1}}
	_, _, ok = degenerate.Pb206U238()
	assert.False(t, ok)
	_, _, _, _, ok = degenerate.Coordinates(TeraWasserburg)
	assert.False(t, ok)
}

func spotsFor(n int) []*Spot {
	out := make([]*Spot, n)
	for i := range out {
		out[i] = NewSpot(i, "s", Measurement{Value: 4, Sigmas: 1}, Measurement{Value: 0.1, Sigmas: 1}, nil)
	}
	return out
}

func TestSample_Lifecycle(t *testing.T) {
	spots := spotsFor(4)
	spots = append(spots, NewSpot(4, "s", Measurement{}, Measurement{}, []string{"u238pb206"}))
	s := NewSample("s", spots)

	assert.NotEmpty(t, s.ID)
	assert.Len(t, s.ValidSpots(), 4)
	assert.Len(t, s.InvalidSpots(), 1)
	assert.Empty(t, s.ConcordantSpots())
	assert.Empty(t, s.DiscordantSpots())

	settings := DefaultCalculationSettings()
	s.StartCalculation(&settings)
	require.NotNil(t, s.Settings)
	assert.NotSame(t, &settings, s.Settings)

	age := 1e9
	s.UpdateConcordance([]Concordance{
		{Concordant: true, Age: &age},
		{Concordant: false},
		{Concordant: true, Age: &age},
		{Concordant: false},
	})
	assert.Len(t, s.ConcordantSpots(), 2)
	assert.Len(t, s.DiscordantSpots(), 2)

	s.AddRun(&MonteCarloRun{RunNumber: 1})
	s.AddRun(&MonteCarloRun{RunNumber: 2})
	s.SetOptimalAge(OptimalAge{Age: 1e9, Runs: 2})
	s.Processed = true

	snap := s.Snapshot()
	assert.Equal(t, s.ID, snap.ID)
	assert.Len(t, snap.Spots, 4)
	for _, sp := range snap.Spots {
		assert.Nil(t, sp.Concordance, "snapshots carry unclassified spots")
	}

	s.ClearCalculation()
	assert.Nil(t, s.Settings)
	assert.Nil(t, s.Runs)
	assert.Nil(t, s.Optimal)
	assert.False(t, s.Processed)
	assert.Empty(t, s.ConcordantSpots())
}

func runWith(ages, scores []float64) *MonteCarloRun {
	r := &MonteCarloRun{PbLossAges: ages}
	for i, a := range ages {
		r.Statistics = append(r.Statistics, PbLossAgeStatistic{PbLossAge: a, Score: scores[i]})
	}
	return r
}

func TestMonteCarloRun_StatisticAt(t *testing.T) {
	r := runWith([]float64{1, 2, 3}, []float64{0.5, 0.1, 0.9})
	r.OptimalIndex = 1

	st, ok := r.StatisticAt(3)
	require.True(t, ok)
	assert.Equal(t, 0.9, st.Score)

	_, ok = r.StatisticAt(2.5)
	assert.False(t, ok)

	assert.Equal(t, 0.1, r.OptimalStatistic().Score)
	assert.Equal(t, []float64{0.5, 0.1, 0.9}, r.Scores())
}

func TestMonteCarloRun_HeatmapColumns(t *testing.T) {
	// Ages 0, 10, 40 over [0, 40] in 4 columns of width 10.
	r := runWith([]float64{0, 10, 40}, []float64{0.2, 0.4, 0.8})
	cols := r.HeatmapColumns(0, 40, 4)

	require.Len(t, cols, 4)
	assert.InDelta(t, 0.2, cols[0], 1e-12)
	assert.InDelta(t, 0.4, cols[1], 1e-12)
	// Column 2 is empty: one step from column 1, one from column 3.
	assert.InDelta(t, 0.6, cols[2], 1e-12)
	assert.InDelta(t, 0.8, cols[3], 1e-12)

	edge := runWith([]float64{30}, []float64{0.5}).HeatmapColumns(0, 40, 4)
	assert.True(t, math.IsNaN(edge[0]), "no populated column to the left")
	assert.InDelta(t, 0.5, edge[3], 1e-12)
}

func TestMonteCarloRun_ToRow(t *testing.T) {
	r := &MonteCarloRun{RunNumber: 3, SampleName: "zircon", OptimalPbLossAge: 1250e6}
	assert.Equal(t, RunRow{SampleName: "zircon", RunNumber: 3, OptimalAgeMa: 1250}, r.ToRow())
}
