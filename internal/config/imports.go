package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pbloss-mcp/internal/model"
)

// ImportSettings maps spreadsheet columns onto spot fields. Columns are
// given as letters ("A", "B", ..., "AA") or 1-based numbers.
type ImportSettings struct {
	Delimiter       rune
	HasHeaders      bool
	MultipleSamples bool

	SampleNameColumn      string
	U238Pb206Column       string
	U238Pb206ErrorColumn  string
	Pb207Pb206Column      string
	Pb207Pb206ErrorColumn string

	U238Pb206ErrorType    model.ErrorType
	U238Pb206ErrorSigmas  int
	Pb207Pb206ErrorType   model.ErrorType
	Pb207Pb206ErrorSigmas int
}

// DefaultImportSettings reads sample, ²³⁸U/²⁰⁶Pb ±, ²⁰⁷Pb/²⁰⁶Pb ± from
// columns A to E with absolute 2σ errors.
func DefaultImportSettings() ImportSettings {
	return ImportSettings{
		Delimiter:             ',',
		HasHeaders:            true,
		MultipleSamples:       true,
		SampleNameColumn:      "A",
		U238Pb206Column:       "B",
		U238Pb206ErrorColumn:  "C",
		Pb207Pb206Column:      "D",
		Pb207Pb206ErrorColumn: "E",
		U238Pb206ErrorType:    model.Absolute,
		U238Pb206ErrorSigmas:  2,
		Pb207Pb206ErrorType:   model.Absolute,
		Pb207Pb206ErrorSigmas: 2,
	}
}

// ColumnIndex converts a column reference to a zero-based index.
func ColumnIndex(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("empty column reference")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("column number %d must be positive", n)
		}
		return n - 1, nil
	}
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(ref))
	if err != nil {
		return 0, fmt.Errorf("invalid column reference %q: %w", ref, err)
	}
	return n - 1, nil
}

// Columns is the resolved zero-based layout. SampleName is -1 when the file
// holds a single sample.
type Columns struct {
	SampleName      int
	U238Pb206       int
	U238Pb206Error  int
	Pb207Pb206      int
	Pb207Pb206Error int
}

// Resolve validates the settings and returns the column layout.
func (s ImportSettings) Resolve() (Columns, error) {
	if s.U238Pb206ErrorSigmas != 1 && s.U238Pb206ErrorSigmas != 2 {
		return Columns{}, &model.ValidationError{Field: "u238pb206_error_sigmas", Message: "Errors must be given at 1 or 2 sigma"}
	}
	if s.Pb207Pb206ErrorSigmas != 1 && s.Pb207Pb206ErrorSigmas != 2 {
		return Columns{}, &model.ValidationError{Field: "pb207pb206_error_sigmas", Message: "Errors must be given at 1 or 2 sigma"}
	}

	refs := []columnRef{
		{"u238pb206", s.U238Pb206Column},
		{"u238pb206_error", s.U238Pb206ErrorColumn},
		{"pb207pb206", s.Pb207Pb206Column},
		{"pb207pb206_error", s.Pb207Pb206ErrorColumn},
	}
	if s.MultipleSamples {
		refs = append(refs, columnRef{"sample_name", s.SampleNameColumn})
	}

	idx := make([]int, len(refs))
	seen := map[int]bool{}
	for i, r := range refs {
		if strings.TrimSpace(r.ref) == "" {
			return Columns{}, &model.ValidationError{Field: r.name, Message: "Must enter a value for each column"}
		}
		n, err := ColumnIndex(r.ref)
		if err != nil {
			return Columns{}, &model.ValidationError{Field: r.name, Message: err.Error()}
		}
		if seen[n] {
			return Columns{}, &model.ValidationError{Field: r.name, Message: fmt.Sprintf("Column %s is used more than once", strings.ToUpper(strings.TrimSpace(r.ref)))}
		}
		seen[n] = true
		idx[i] = n
	}

	cols := Columns{
		SampleName:      -1,
		U238Pb206:       idx[0],
		U238Pb206Error:  idx[1],
		Pb207Pb206:      idx[2],
		Pb207Pb206Error: idx[3],
	}
	if s.MultipleSamples {
		cols.SampleName = idx[4]
	}
	return cols, nil
}

type columnRef struct {
	name string
	ref  string
}

// ImportConfig maps the [import] table of the settings file.
type ImportConfig struct {
	Delimiter        *string `toml:"delimiter"`
	HasHeaders       *bool   `toml:"has-headers"`
	MultipleSamples  *bool   `toml:"multiple-samples"`
	SampleName       *string `toml:"sample-name-column"`
	U238Pb206        *string `toml:"u238pb206-column"`
	U238Pb206Error   *string `toml:"u238pb206-error-column"`
	Pb207Pb206       *string `toml:"pb207pb206-column"`
	Pb207Pb206Error  *string `toml:"pb207pb206-error-column"`
	U238Pb206Type    *string `toml:"u238pb206-error-type"`
	U238Pb206Sigmas  *int    `toml:"u238pb206-error-sigmas"`
	Pb207Pb206Type   *string `toml:"pb207pb206-error-type"`
	Pb207Pb206Sigmas *int    `toml:"pb207pb206-error-sigmas"`
}

// Apply copies every set key onto s.
func (c ImportConfig) Apply(s *ImportSettings) error {
	if c.Delimiter != nil {
		d := []rune(*c.Delimiter)
		if len(d) != 1 {
			return &model.ValidationError{Field: "delimiter", Message: "The delimiter must be a single character"}
		}
		s.Delimiter = d[0]
	}
	setBool(&s.HasHeaders, c.HasHeaders)
	setBool(&s.MultipleSamples, c.MultipleSamples)
	setString(&s.SampleNameColumn, c.SampleName)
	setString(&s.U238Pb206Column, c.U238Pb206)
	setString(&s.U238Pb206ErrorColumn, c.U238Pb206Error)
	setString(&s.Pb207Pb206Column, c.Pb207Pb206)
	setString(&s.Pb207Pb206ErrorColumn, c.Pb207Pb206Error)

	if c.U238Pb206Type != nil {
		t, err := model.ParseErrorType(*c.U238Pb206Type)
		if err != nil {
			return &model.ValidationError{Field: "u238pb206_error_type", Message: err.Error()}
		}
		s.U238Pb206ErrorType = t
	}
	if c.Pb207Pb206Type != nil {
		t, err := model.ParseErrorType(*c.Pb207Pb206Type)
		if err != nil {
			return &model.ValidationError{Field: "pb207pb206_error_type", Message: err.Error()}
		}
		s.Pb207Pb206ErrorType = t
	}
	if c.U238Pb206Sigmas != nil {
		s.U238Pb206ErrorSigmas = *c.U238Pb206Sigmas
	}
	if c.Pb207Pb206Sigmas != nil {
		s.Pb207Pb206ErrorSigmas = *c.Pb207Pb206Sigmas
	}
	return nil
}

// LoadImportSettings applies the file's [import] table over the defaults.
func LoadImportSettings(path string) (ImportSettings, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return ImportSettings{}, err
	}
	s := DefaultImportSettings()
	if err := cfg.Import.Apply(&s); err != nil {
		return ImportSettings{}, err
	}
	if _, err := s.Resolve(); err != nil {
		return ImportSettings{}, err
	}
	return s, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
