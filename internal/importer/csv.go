package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"pbloss-mcp/internal/config"
)

// ReadCSV reads delimited text. Rows may have differing lengths.
func ReadCSV(r io.Reader, singleName string, settings config.ImportSettings) (Result, error) {
	reader := csv.NewReader(r)
	if settings.Delimiter != 0 {
		reader.Comma = settings.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read CSV: %w", err)
	}
	if singleName == "" {
		singleName = DefaultSampleName
	}
	return BuildSamples(rows, singleName, settings)
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path, singleName string, settings config.ImportSettings) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, singleName, settings)
}
