package model

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ClassificationMethod selects how spots are split into concordant and discordant.
type ClassificationMethod int

const (
	Percentage ClassificationMethod = iota
	ErrorEllipse
)

func (m ClassificationMethod) String() string {
	switch m {
	case Percentage:
		return "Percentage"
	case ErrorEllipse:
		return "Error ellipse"
	default:
		return fmt.Sprintf("ClassificationMethod(%d)", int(m))
	}
}

// ParseClassificationMethod accepts "percentage" or "ellipse" (case-insensitive).
func ParseClassificationMethod(s string) (ClassificationMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percentage", "percent":
		return Percentage, nil
	case "ellipse", "error ellipse", "error-ellipse", "error_ellipse":
		return ErrorEllipse, nil
	}
	return 0, fmt.Errorf("unknown discordance classification method %q", s)
}

// ConcordiaSystem selects the ratio coordinate system used for all calculations.
type ConcordiaSystem int

const (
	TeraWasserburg ConcordiaSystem = iota
	Wetherill
)

func (s ConcordiaSystem) String() string {
	switch s {
	case TeraWasserburg:
		return "Tera-Wasserburg"
	case Wetherill:
		return "Wetherill"
	default:
		return fmt.Sprintf("ConcordiaSystem(%d)", int(s))
	}
}

// ParseConcordiaSystem accepts "tera-wasserburg"/"tw" or "wetherill".
func ParseConcordiaSystem(s string) (ConcordiaSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tera-wasserburg", "terawasserburg", "tw":
		return TeraWasserburg, nil
	case "wetherill":
		return Wetherill, nil
	}
	return 0, fmt.Errorf("unknown concordia system %q", s)
}

// DissimilarityTest selects the two-sample statistic used for scoring.
type DissimilarityTest int

const (
	KolmogorovSmirnov DissimilarityTest = iota
)

func (t DissimilarityTest) String() string {
	switch t {
	case KolmogorovSmirnov:
		return "Kolmogorov-Smirnov"
	default:
		return fmt.Sprintf("DissimilarityTest(%d)", int(t))
	}
}

// ParseDissimilarityTest accepts "ks" or "kolmogorov-smirnov".
func ParseDissimilarityTest(s string) (DissimilarityTest, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ks", "kolmogorov-smirnov", "kolmogorov_smirnov":
		return KolmogorovSmirnov, nil
	}
	return 0, fmt.Errorf("unknown dissimilarity test %q", s)
}

// CalculationSettings is the read-only configuration of one calculation.
// Ages are in years.
type CalculationSettings struct {
	ClassificationMethod        ClassificationMethod `json:"classification_method"`
	DiscordancePercentageCutoff float64              `json:"discordance_percentage_cutoff"`
	DiscordanceEllipseSigmas    int                  `json:"discordance_ellipse_sigmas"`

	MinimumPbLossAge float64 `json:"minimum_pb_loss_age"`
	MaximumPbLossAge float64 `json:"maximum_pb_loss_age"`
	PbLossAgeSamples int     `json:"pb_loss_age_samples"`

	MonteCarloRuns      int               `json:"monte_carlo_runs"`
	DissimilarityTest   DissimilarityTest `json:"dissimilarity_test"`
	PenaliseInvalidAges bool              `json:"penalise_invalid_ages"`
	System              ConcordiaSystem   `json:"system"`

	// Seed fixes the random stream; zero draws a seed from the clock.
	Seed uint64 `json:"seed,omitempty"`
}

// DefaultCalculationSettings returns the settings used when nothing is configured.
func DefaultCalculationSettings() CalculationSettings {
	return CalculationSettings{
		ClassificationMethod:        Percentage,
		DiscordancePercentageCutoff: 0.1,
		DiscordanceEllipseSigmas:    2,
		MinimumPbLossAge:            500e6,
		MaximumPbLossAge:            4500e6,
		PbLossAgeSamples:            100,
		MonteCarloRuns:              50,
		DissimilarityTest:           KolmogorovSmirnov,
		PenaliseInvalidAges:         true,
		System:                      TeraWasserburg,
	}
}

// ValidationError reports a rejected setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks the settings before any computation starts.
func (s CalculationSettings) Validate() error {
	switch s.ClassificationMethod {
	case Percentage:
		if s.DiscordancePercentageCutoff < 0 || s.DiscordancePercentageCutoff > 1.0 {
			return &ValidationError{"discordance_percentage_cutoff", "Discordance percentage cutoff must be between 0 and 100%"}
		}
	case ErrorEllipse:
		if s.DiscordanceEllipseSigmas != 1 && s.DiscordanceEllipseSigmas != 2 {
			return &ValidationError{"discordance_ellipse_sigmas", "The error ellipse confidence must be 1 or 2 sigma"}
		}
	default:
		return &ValidationError{"classification_method", "Unknown discordance classification method"}
	}

	if !isFinite(s.MinimumPbLossAge) || !isFinite(s.MaximumPbLossAge) {
		return &ValidationError{"pb_loss_age_bounds", "The minimum and maximum Pb-loss ages must be finite numbers"}
	}
	if s.MinimumPbLossAge >= s.MaximumPbLossAge {
		return &ValidationError{"pb_loss_age_range", "The minimum Pb-loss age must be strictly less than the maximum Pb-loss age"}
	}
	if s.PbLossAgeSamples < 2 {
		return &ValidationError{"pb_loss_age_samples", "The number of Pb-loss ages sampled must be >= 2"}
	}
	if s.MonteCarloRuns < 1 {
		return &ValidationError{"monte_carlo_runs", "The number of Monte Carlo runs must be a positive integer"}
	}
	if s.DissimilarityTest != KolmogorovSmirnov {
		return &ValidationError{"dissimilarity_test", "Unknown dissimilarity test"}
	}
	if s.System != TeraWasserburg && s.System != Wetherill {
		return &ValidationError{"system", "Unknown concordia system"}
	}
	return nil
}

// Clone returns an independent copy so later edits to the original cannot
// reach an in-flight calculation.
func (s *CalculationSettings) Clone() *CalculationSettings {
	c := *s
	return &c
}

// PbLossAges returns the evenly spaced candidate grid, endpoints included.
func (s CalculationSettings) PbLossAges() []float64 {
	return floats.Span(make([]float64, s.PbLossAgeSamples), s.MinimumPbLossAge, s.MaximumPbLossAge)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
