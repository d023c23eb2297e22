// Package importer turns spreadsheet rows into samples of spots.
package importer

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"pbloss-mcp/internal/config"
	"pbloss-mcp/internal/model"
)

// DefaultSampleName is used for single-sample files read from a stream.
const DefaultSampleName = "Sample"

// Result is the outcome of one import.
type Result struct {
	Headers []string
	Samples []*model.Sample
}

// Spots returns every imported spot in file order.
func (r Result) Spots() []*model.Spot {
	var out []*model.Spot
	for _, s := range r.Samples {
		out = append(out, s.Spots...)
	}
	return out
}

// ReadFile dispatches on the file extension.
func ReadFile(path string, settings config.ImportSettings) (Result, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSXFile(path, "", settings)
	case ".csv", ".txt", "":
		return ReadCSVFile(path, name, settings)
	default:
		return Result{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// BuildSamples converts raw rows into samples, grouped by sample name in
// order of first appearance.
func BuildSamples(rows [][]string, singleName string, settings config.ImportSettings) (Result, error) {
	cols, err := settings.Resolve()
	if err != nil {
		return Result{}, err
	}

	var res Result
	if settings.HasHeaders && len(rows) > 0 {
		res.Headers = rows[0]
		rows = rows[1:]
	}

	largest := largestColumn(cols)
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if largest >= len(row) {
			asked, _ := excelize.ColumnNumberToName(largest + 1)
			available, _ := excelize.ColumnNumberToName(max(len(row), 1))
			return Result{}, fmt.Errorf("invalid column reference on row %d: asked for column %s but the row only goes up to column %s", i+1, asked, available)
		}
	}

	order := []string{}
	groups := map[string][]*model.Spot{}
	index := 0
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		name := singleName
		if cols.SampleName >= 0 {
			name = strings.TrimSpace(row[cols.SampleName])
		}
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], parseSpot(index, name, row, cols, settings))
		index++
	}

	for _, name := range order {
		res.Samples = append(res.Samples, model.NewSample(name, groups[name]))
	}
	log.Debug().Int("spots", index).Int("samples", len(res.Samples)).Msg("Imported spots")
	return res, nil
}

func largestColumn(cols config.Columns) int {
	return max(cols.U238Pb206, cols.U238Pb206Error, cols.Pb207Pb206, cols.Pb207Pb206Error, cols.SampleName)
}

func parseSpot(index int, name string, row []string, cols config.Columns, s config.ImportSettings) *model.Spot {
	var invalid []string
	cell := func(col int, label string) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			invalid = append(invalid, label)
			return math.NaN()
		}
		return v
	}

	u := model.Measurement{
		Value:  cell(cols.U238Pb206, "u238pb206"),
		Error:  cell(cols.U238Pb206Error, "u238pb206_error"),
		Type:   s.U238Pb206ErrorType,
		Sigmas: s.U238Pb206ErrorSigmas,
	}
	pb := model.Measurement{
		Value:  cell(cols.Pb207Pb206, "pb207pb206"),
		Error:  cell(cols.Pb207Pb206Error, "pb207pb206_error"),
		Type:   s.Pb207Pb206ErrorType,
		Sigmas: s.Pb207Pb206ErrorSigmas,
	}
	return model.NewSpot(index, name, u, pb, invalid)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
