package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"pbloss-mcp/internal/config"
)

// ReadXLSXFile reads one worksheet; an empty sheet name means the first.
// Single-sample workbooks are named after the sheet.
func ReadXLSXFile(path, sheet string, settings config.ImportSettings) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Result{}, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	cols, err := settings.Resolve()
	if err != nil {
		return Result{}, err
	}
	padRows(rows, largestColumn(cols)+1)

	name := sheet
	if strings.HasPrefix(strings.ToLower(sheet), "sheet") {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return BuildSamples(rows, name, settings)
}

// padRows restores the trailing empty cells GetRows drops, so a blank
// last column marks the spot invalid instead of failing the import.
// Blank rows are left alone.
func padRows(rows [][]string, width int) {
	for i, row := range rows {
		if len(row) < width && !isBlank(row) {
			rows[i] = append(row, make([]string, width-len(row))...)
		}
	}
}
