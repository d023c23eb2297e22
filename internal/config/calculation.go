package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"
)

// FileConfig represents the TOML settings file.
type FileConfig struct {
	Calculation CalculationConfig `toml:"calculation"`
	Import      ImportConfig      `toml:"import"`
}

// CalculationConfig maps the [calculation] table. Ages are in Ma. Unset
// keys keep their defaults.
type CalculationConfig struct {
	Method   *string  `toml:"method"`
	Cutoff   *float64 `toml:"discordance-cutoff"`
	Sigmas   *int     `toml:"ellipse-sigmas"`
	MinAgeMa *float64 `toml:"min-age-ma"`
	MaxAgeMa *float64 `toml:"max-age-ma"`
	Samples  *int     `toml:"age-samples"`
	Runs     *int     `toml:"monte-carlo-runs"`
	Test     *string  `toml:"dissimilarity-test"`
	Penalise *bool    `toml:"penalise-invalid-ages"`
	System   *string  `toml:"system"`
	Seed     *uint64  `toml:"seed"`
}

// LoadFile reads a TOML settings file. A missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat settings file: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode settings file: %w", err)
	}
	return cfg, nil
}

// LoadCalculationSettings applies the file's [calculation] table over the
// defaults and validates the result.
func LoadCalculationSettings(path string) (model.CalculationSettings, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return model.CalculationSettings{}, err
	}
	s := model.DefaultCalculationSettings()
	if err := cfg.Calculation.Apply(&s); err != nil {
		return model.CalculationSettings{}, err
	}
	if err := s.Validate(); err != nil {
		return model.CalculationSettings{}, err
	}
	return s, nil
}

// Apply copies every set key onto s.
func (c CalculationConfig) Apply(s *model.CalculationSettings) error {
	if c.Method != nil {
		m, err := model.ParseClassificationMethod(*c.Method)
		if err != nil {
			return &model.ValidationError{Field: "classification_method", Message: err.Error()}
		}
		s.ClassificationMethod = m
	}
	if c.Cutoff != nil {
		s.DiscordancePercentageCutoff = *c.Cutoff
	}
	if c.Sigmas != nil {
		s.DiscordanceEllipseSigmas = *c.Sigmas
	}
	if c.MinAgeMa != nil {
		s.MinimumPbLossAge = *c.MinAgeMa * concordia.Ma
	}
	if c.MaxAgeMa != nil {
		s.MaximumPbLossAge = *c.MaxAgeMa * concordia.Ma
	}
	if c.Samples != nil {
		s.PbLossAgeSamples = *c.Samples
	}
	if c.Runs != nil {
		s.MonteCarloRuns = *c.Runs
	}
	if c.Test != nil {
		t, err := model.ParseDissimilarityTest(*c.Test)
		if err != nil {
			return &model.ValidationError{Field: "dissimilarity_test", Message: err.Error()}
		}
		s.DissimilarityTest = t
	}
	if c.Penalise != nil {
		s.PenaliseInvalidAges = *c.Penalise
	}
	if c.System != nil {
		sys, err := model.ParseConcordiaSystem(*c.System)
		if err != nil {
			return &model.ValidationError{Field: "system", Message: err.Error()}
		}
		s.System = sys
	}
	if c.Seed != nil {
		s.Seed = *c.Seed
	}
	return nil
}

// ParseCalculationOverrides turns loosely typed key/value pairs (CLI flags,
// tool arguments) into a CalculationConfig. Missing or non-numeric values
// are rejected with a message naming the key.
func ParseCalculationOverrides(values map[string]string) (CalculationConfig, error) {
	var c CalculationConfig

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := strings.TrimSpace(values[key])
		if raw == "" {
			return c, &model.ValidationError{Field: key, Message: fmt.Sprintf("A value for %s is required", key)}
		}
		var err error
		switch key {
		case "method":
			c.Method = &raw
		case "discordance-cutoff":
			c.Cutoff, err = parseFloat(key, raw)
		case "ellipse-sigmas":
			c.Sigmas, err = parseInt(key, raw)
		case "min-age-ma":
			c.MinAgeMa, err = parseFloat(key, raw)
		case "max-age-ma":
			c.MaxAgeMa, err = parseFloat(key, raw)
		case "age-samples":
			c.Samples, err = parseInt(key, raw)
		case "monte-carlo-runs":
			c.Runs, err = parseInt(key, raw)
		case "dissimilarity-test":
			c.Test = &raw
		case "penalise-invalid-ages":
			b, perr := strconv.ParseBool(raw)
			if perr != nil {
				err = &model.ValidationError{Field: key, Message: fmt.Sprintf("%s must be true or false", key)}
			}
			c.Penalise = &b
		case "system":
			c.System = &raw
		case "seed":
			v, perr := strconv.ParseUint(raw, 10, 64)
			if perr != nil {
				err = &model.ValidationError{Field: key, Message: fmt.Sprintf("%s must be a non-negative integer", key)}
			}
			c.Seed = &v
		default:
			err = &model.ValidationError{Field: key, Message: fmt.Sprintf("unknown setting %q", key)}
		}
		if err != nil {
			return CalculationConfig{}, err
		}
	}
	return c, nil
}

func parseFloat(key, raw string) (*float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &model.ValidationError{Field: key, Message: fmt.Sprintf("%s must be a number", key)}
	}
	return &v, nil
}

func parseInt(key, raw string) (*int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &model.ValidationError{Field: key, Message: fmt.Sprintf("%s must be a whole number", key)}
	}
	return &v, nil
}
