package model

import (
	"fmt"
	"math"
	"strings"

	"pbloss-mcp/internal/concordia"
)

// ErrorType is how a measurement's uncertainty is written down.
type ErrorType int

const (
	Absolute ErrorType = iota
	PercentageError
)

func (t ErrorType) String() string {
	if t == PercentageError {
		return "Percentage"
	}
	return "Absolute"
}

// ParseErrorType accepts "absolute" or "percentage".
func ParseErrorType(s string) (ErrorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absolute", "abs":
		return Absolute, nil
	case "percentage", "percent", "%":
		return PercentageError, nil
	}
	return 0, fmt.Errorf("unknown error type %q", s)
}

// To1StdDev normalises a reported error to one absolute standard deviation.
func To1StdDev(value, err float64, form ErrorType, sigmas int) float64 {
	if form == PercentageError {
		err = (err / 100.0) * value
	}
	return err / float64(sigmas)
}

// From1StdDev converts one absolute standard deviation back to the reported form.
func From1StdDev(value, stdDev float64, form ErrorType, sigmas int) float64 {
	res := stdDev * float64(sigmas)
	if form == PercentageError {
		return 100.0 * res / value
	}
	return res
}

// ConvertFromStdDevWithoutSigmas converts an absolute error to the reported form.
func ConvertFromStdDevWithoutSigmas(value, err float64, form ErrorType) float64 {
	if form == PercentageError {
		return 100.0 * err / value
	}
	return err
}

// Measurement is one ratio with its reported uncertainty.
type Measurement struct {
	Value  float64   `json:"value"`
	Error  float64   `json:"error"`
	Type   ErrorType `json:"error_type"`
	Sigmas int       `json:"sigmas"`
}

// StdDev returns the 1σ absolute error.
func (m Measurement) StdDev() float64 {
	sigmas := m.Sigmas
	if sigmas <= 0 {
		sigmas = 1
	}
	return To1StdDev(m.Value, m.Error, m.Type, sigmas)
}

// Concordance is the outcome of one classification pass for a spot.
type Concordance struct {
	Concordant bool `json:"concordant"`
	// Discordance is only set by the percentage method.
	Discordance *float64 `json:"discordance,omitempty"`
	// Age is only set for concordant spots.
	Age *float64 `json:"age,omitempty"`
}

// Spot is one measured analysis. Tera-Wasserburg ratios are primary; the
// Wetherill ratios are derived from them.
type Spot struct {
	Index          int         `json:"index"`
	SampleName     string      `json:"sample_name,omitempty"`
	U238Pb206      Measurement `json:"u238pb206"`
	Pb207Pb206     Measurement `json:"pb207pb206"`
	Valid          bool        `json:"valid"`
	InvalidColumns []string    `json:"invalid_columns,omitempty"`

	Concordance *Concordance `json:"concordance,omitempty"`
}

// NewSpot builds a spot and marks it invalid when a required field is
// missing or a ratio is not strictly positive.
func NewSpot(index int, sampleName string, u238pb206, pb207pb206 Measurement, invalidColumns []string) *Spot {
	s := &Spot{
		Index:          index,
		SampleName:     sampleName,
		U238Pb206:      u238pb206,
		Pb207Pb206:     pb207pb206,
		InvalidColumns: invalidColumns,
	}
	s.Valid = len(invalidColumns) == 0 && u238pb206.Value > 0 && pb207pb206.Value > 0 &&
		!math.IsNaN(u238pb206.Error) && !math.IsNaN(pb207pb206.Error)
	return s
}

// Classified reports whether a classification pass has run since the last reset.
func (s *Spot) Classified() bool {
	return s.Concordance != nil
}

// IsConcordant is false until the spot is classified.
func (s *Spot) IsConcordant() bool {
	return s.Concordance != nil && s.Concordance.Concordant
}

// UpdateConcordance records the result of a classification pass.
func (s *Spot) UpdateConcordance(c Concordance) {
	s.Concordance = &c
}

// ResetConcordance clears the classification-derived fields.
func (s *Spot) ResetConcordance() {
	s.Concordance = nil
}

// Pb206U238 returns the Wetherill ²⁰⁶Pb/²³⁸U ratio and its 1σ error.
func (s *Spot) Pb206U238() (value, stdDev float64, ok bool) {
	x := s.U238Pb206.Value
	if !(x > 0) {
		return 0, 0, false
	}
	return 1 / x, s.U238Pb206.StdDev() / (x * x), true
}

// Pb207U235 returns the Wetherill ²⁰⁷Pb/²³⁵U ratio and its 1σ error.
func (s *Spot) Pb207U235() (value, stdDev float64, ok bool) {
	x, y := s.U238Pb206.Value, s.Pb207Pb206.Value
	if !(x > 0) || !(y > 0) {
		return 0, 0, false
	}
	v := concordia.U238U235Ratio * y / x
	rel := math.Hypot(s.Pb207Pb206.StdDev()/y, s.U238Pb206.StdDev()/x)
	return v, v * rel, true
}

// Coordinates returns the spot's (x, σx, y, σy) in the requested system.
func (s *Spot) Coordinates(system ConcordiaSystem) (x, xErr, y, yErr float64, ok bool) {
	if system == Wetherill {
		x, xErr, okX := s.Pb207U235()
		y, yErr, okY := s.Pb206U238()
		return x, xErr, y, yErr, okX && okY
	}
	if !(s.U238Pb206.Value > 0) || !(s.Pb207Pb206.Value > 0) {
		return 0, 0, 0, 0, false
	}
	return s.U238Pb206.Value, s.U238Pb206.StdDev(), s.Pb207Pb206.Value, s.Pb207Pb206.StdDev(), true
}
