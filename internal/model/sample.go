package model

import (
	"github.com/google/uuid"
)

// Sample is a named group of spots sharing one set of calculation settings.
// Only the worker processing it may mutate it.
type Sample struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Spots []*Spot `json:"spots"`

	Settings   *CalculationSettings `json:"settings,omitempty"`
	Runs       []*MonteCarloRun     `json:"-"`
	Optimal    *OptimalAge          `json:"optimal,omitempty"`
	Processed  bool                 `json:"processed"`
	SkipReason string               `json:"skip_reason,omitempty"`
}

// NewSample creates a sample with a fresh identifier.
func NewSample(name string, spots []*Spot) *Sample {
	return &Sample{
		ID:    uuid.NewString(),
		Name:  name,
		Spots: spots,
	}
}

// ValidSpots returns the spots whose required fields all parsed.
func (s *Sample) ValidSpots() []*Spot {
	var out []*Spot
	for _, spot := range s.Spots {
		if spot.Valid {
			out = append(out, spot)
		}
	}
	return out
}

// InvalidSpots returns the spots that failed to parse.
func (s *Sample) InvalidSpots() []*Spot {
	var out []*Spot
	for _, spot := range s.Spots {
		if !spot.Valid {
			out = append(out, spot)
		}
	}
	return out
}

// ConcordantSpots returns the classified concordant spots.
func (s *Sample) ConcordantSpots() []*Spot {
	var out []*Spot
	for _, spot := range s.ValidSpots() {
		if spot.IsConcordant() {
			out = append(out, spot)
		}
	}
	return out
}

// DiscordantSpots returns the classified discordant spots.
func (s *Sample) DiscordantSpots() []*Spot {
	var out []*Spot
	for _, spot := range s.ValidSpots() {
		if spot.Classified() && !spot.IsConcordant() {
			out = append(out, spot)
		}
	}
	return out
}

// StartCalculation clears earlier results and pins a private copy of settings.
func (s *Sample) StartCalculation(settings *CalculationSettings) {
	s.ClearCalculation()
	s.Settings = settings.Clone()
}

// ClearCalculation discards every derived field.
func (s *Sample) ClearCalculation() {
	for _, spot := range s.Spots {
		spot.ResetConcordance()
	}
	s.Settings = nil
	s.Runs = nil
	s.Optimal = nil
	s.Processed = false
	s.SkipReason = ""
}

// UpdateConcordance applies classification results, aligned with ValidSpots.
func (s *Sample) UpdateConcordance(results []Concordance) {
	for i, spot := range s.ValidSpots() {
		if i >= len(results) {
			break
		}
		spot.UpdateConcordance(results[i])
	}
}

// AddRun appends a completed run. Runs are never reordered.
func (s *Sample) AddRun(run *MonteCarloRun) {
	s.Runs = append(s.Runs, run)
}

// SetOptimalAge publishes the latest aggregate.
func (s *Sample) SetOptimalAge(o OptimalAge) {
	s.Optimal = &o
}

// SampleSnapshot is an immutable copy of the inputs the engine needs.
type SampleSnapshot struct {
	ID    string
	Name  string
	Spots []Spot // valid spots only, unclassified
}

// Snapshot copies the sample's valid spots for processing.
func (s *Sample) Snapshot() SampleSnapshot {
	valid := s.ValidSpots()
	spots := make([]Spot, len(valid))
	for i, spot := range valid {
		c := *spot
		c.Concordance = nil
		if spot.InvalidColumns != nil {
			c.InvalidColumns = append([]string(nil), spot.InvalidColumns...)
		}
		spots[i] = c
	}
	return SampleSnapshot{ID: s.ID, Name: s.Name, Spots: spots}
}
