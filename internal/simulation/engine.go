package simulation

import (
	"fmt"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/dissimilarity"
	"pbloss-mcp/internal/model"
)

// Engine evaluates Monte Carlo runs for one settings instance.
type Engine struct {
	settings *model.CalculationSettings
	system   concordia.System
	grid     []float64
}

// NewEngine validates and copies the settings. Later changes to the caller's
// settings do not reach the engine.
func NewEngine(settings *model.CalculationSettings) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	s := settings.Clone()
	return &Engine{
		settings: s,
		system:   SystemFor(s.System),
		grid:     s.PbLossAges(),
	}, nil
}

// SystemFor maps the settings enum onto its curve implementation.
func SystemFor(s model.ConcordiaSystem) concordia.System {
	if s == model.Wetherill {
		return concordia.Wetherill{}
	}
	return concordia.TeraWasserburg{}
}

func (e *Engine) Settings() *model.CalculationSettings { return e.settings }

func (e *Engine) System() concordia.System { return e.system }

// Grid returns the candidate Pb-loss ages.
func (e *Engine) Grid() []float64 { return e.grid }

// Run evaluates one realisation: concordant ages from the concordant draws,
// then every candidate age against every discordant draw.
func (e *Engine) Run(number int, sampleName string, concX, concY, discX, discY []float64) (*model.MonteCarloRun, error) {
	run := &model.MonteCarloRun{
		RunNumber:   number,
		SampleName:  sampleName,
		System:      e.settings.System,
		ConcordantX: concX,
		ConcordantY: concY,
		DiscordantX: discX,
		DiscordantY: discY,
		PbLossAges:  e.grid,
	}

	// 1. Concordant ages
	run.ConcordantAges = make([]float64, len(concX))
	for i := range concX {
		age, err := e.system.ConcordantAge(concX[i], concY[i])
		if err != nil {
			return nil, fmt.Errorf("run %d: concordant age of spot %d: %w", number, i, err)
		}
		run.ConcordantAges[i] = age
	}

	// 2. Score every candidate age
	run.Statistics = make([]model.PbLossAgeStatistic, len(e.grid))
	reconstructed := make([]model.Reconstruction, len(discX))
	for g, anchor := range e.grid {
		for i := range discX {
			age, ok := e.system.DiscordantAge(anchor, discX[i], discY[i])
			reconstructed[i] = model.Reconstruction{Age: age, OK: ok}
		}
		run.Statistics[g] = dissimilarity.Evaluate(anchor, run.ConcordantAges, reconstructed,
			e.settings.DissimilarityTest, e.settings.PenaliseInvalidAges)
	}

	// 3. Pick this run's optimum
	run.OptimalIndex = OptimalIndex(run.Scores())
	run.OptimalPbLossAge = e.grid[run.OptimalIndex]
	run.OptimalX, run.OptimalY = e.system.Point(run.OptimalPbLossAge)
	return run, nil
}
