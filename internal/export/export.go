// Package export writes processed samples to CSV and XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"
)

// RunHeaders head the per-run export.
var RunHeaders = []string{"SampleID", "Run", "Pb loss age (Ma)"}

// SummaryHeaders head the per-sample export.
var SummaryHeaders = []string{
	"Sample", "Status", "Runs", "Pb loss age (Ma)", "Lower 95% (Ma)", "Upper 95% (Ma)",
	"Mean D", "Mean p", "Mean invalid", "Mean score",
}

// RunRows flattens every sample's runs into export rows.
func RunRows(samples []*model.Sample) []model.RunRow {
	var rows []model.RunRow
	for _, s := range samples {
		for _, r := range s.Runs {
			rows = append(rows, r.ToRow())
		}
	}
	return rows
}

// WriteRunsCSV writes one line per Monte Carlo run with ages rounded to 0.01 Ma.
func WriteRunsCSV(w io.Writer, rows []model.RunRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RunHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.SampleName, strconv.Itoa(r.RunNumber), fToStr(r.OptimalAgeMa, 2)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func summaryRow(s *model.Sample) []any {
	status := "unprocessed"
	switch {
	case s.Processed:
		status = "processed"
	case s.SkipReason != "":
		status = "skipped: " + s.SkipReason
	}
	row := []any{s.Name, status, len(s.Runs)}
	if o := s.Optimal; o != nil {
		row = append(row,
			round(o.Age/concordia.Ma, 2), round(o.LowerBound/concordia.Ma, 2), round(o.UpperBound/concordia.Ma, 2),
			round(o.MeanDValue, 4), round(o.MeanPValue, 4), round(o.MeanInvalidCount, 2), round(o.MeanScore, 4))
	}
	return row
}

// WriteWorkbook saves a Summary sheet and a Runs sheet to path.
func WriteWorkbook(path string, samples []*model.Sample) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary, runs = "Summary", "Runs"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	if _, err := f.NewSheet(runs); err != nil {
		return err
	}

	if err := writeRow(f, summary, 1, toAny(SummaryHeaders)); err != nil {
		return err
	}
	for i, s := range samples {
		if err := writeRow(f, summary, i+2, summaryRow(s)); err != nil {
			return err
		}
	}

	if err := writeRow(f, runs, 1, toAny(RunHeaders)); err != nil {
		return err
	}
	for i, r := range RunRows(samples) {
		if err := writeRow(f, runs, i+2, []any{r.SampleName, r.RunNumber, round(r.OptimalAgeMa, 2)}); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}

func fToStr(x float64, decimals int) string {
	return strconv.FormatFloat(round(x, decimals), 'f', decimals, 64)
}
