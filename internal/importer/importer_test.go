package importer

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pbloss-mcp/internal/config"
	"pbloss-mcp/internal/model"
)

const sampleCSV = `Sample,238U/206Pb,±2σ,207Pb/206Pb,±2σ
A,4.0,0.08,0.10,0.002
B,3.5,0.07,0.12,0.003
A,2.9,0.06,0.15,0.004

A,bad,0.06,0.15,
`

func TestReadCSV_GroupsBySample(t *testing.T) {
	res, err := ReadCSV(strings.NewReader(sampleCSV), "", config.DefaultImportSettings())
	require.NoError(t, err)

	require.Len(t, res.Samples, 2)
	assert.Equal(t, "A", res.Samples[0].Name)
	assert.Equal(t, "B", res.Samples[1].Name)
	assert.Len(t, res.Samples[0].Spots, 3)
	assert.Len(t, res.Samples[1].Spots, 1)
	assert.Equal(t, "238U/206Pb", res.Headers[1])
	assert.Len(t, res.Spots(), 4)

	first := res.Samples[0].Spots[0]
	assert.True(t, first.Valid)
	assert.Equal(t, 4.0, first.U238Pb206.Value)
	assert.Equal(t, 2, first.U238Pb206.Sigmas)
	assert.InDelta(t, 0.04, first.U238Pb206.StdDev(), 1e-12)

	bad := res.Samples[0].Spots[2]
	assert.False(t, bad.Valid)
	assert.Equal(t, []string{"u238pb206", "pb207pb206_error"}, bad.InvalidColumns)
	assert.Len(t, res.Samples[0].ValidSpots(), 2)
	assert.Equal(t, 3, bad.Index, "indices run across the whole file")
}

func TestReadCSV_SingleSample(t *testing.T) {
	s := config.DefaultImportSettings()
	s.HasHeaders = false
	s.MultipleSamples = false
	s.Delimiter = ';'
	s.U238Pb206Column, s.U238Pb206ErrorColumn, s.Pb207Pb206Column, s.Pb207Pb206ErrorColumn = "A", "B", "C", "D"
	s.U238Pb206ErrorType = model.PercentageError

	res, err := ReadCSV(strings.NewReader("4.0;2;0.1;0.002\n3.0;2;0.12;0.002\n"), "", s)
	require.NoError(t, err)
	require.Len(t, res.Samples, 1)
	assert.Equal(t, DefaultSampleName, res.Samples[0].Name)
	assert.Nil(t, res.Headers)
	assert.InDelta(t, 0.04, res.Samples[0].Spots[0].U238Pb206.StdDev(), 1e-12)
}

func TestReadCSV_ColumnOutOfRange(t *testing.T) {
	s := config.DefaultImportSettings()
	s.Pb207Pb206ErrorColumn = "G"
	_, err := ReadCSV(strings.NewReader(sampleCSV), "", s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asked for column G but the row only goes up to column E")
}

func TestReadCSV_InvalidSettings(t *testing.T) {
	s := config.DefaultImportSettings()
	s.SampleNameColumn = "B"
	_, err := ReadCSV(strings.NewReader(sampleCSV), "", s)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReadXLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zircons.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"Sample", "U/Pb", "err", "Pb/Pb", "err"},
		{"Z1", 4.0, 0.08, 0.10, 0.002},
		{"Z1", 3.5, 0.07, 0.12, 0.003},
		{"Z2", 2.9, 0.06, 0.15, 0.004},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res, err := ReadFile(path, config.DefaultImportSettings())
	require.NoError(t, err)
	require.Len(t, res.Samples, 2)
	assert.Equal(t, "Z1", res.Samples[0].Name)
	assert.Len(t, res.Samples[0].ValidSpots(), 2)
	assert.InDelta(t, 2.9, res.Samples[1].Spots[0].U238Pb206.Value, 1e-12)
}

func TestReadXLSXFile_BlankTrailingCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zircons.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"Sample", "U/Pb", "err", "Pb/Pb", "err"},
		{"Z1", 4.0, 0.08, 0.10, 0.002},
		{"Z1", 3.5, 0.07, 0.12},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res, err := ReadFile(path, config.DefaultImportSettings())
	require.NoError(t, err)
	require.Len(t, res.Samples, 1)
	spots := res.Samples[0].Spots
	require.Len(t, spots, 2)
	assert.True(t, spots[0].Valid)
	assert.False(t, spots[1].Valid)
	assert.Equal(t, []string{"pb207pb206_error"}, spots[1].InvalidColumns)
}

func TestReadFile_Unsupported(t *testing.T) {
	_, err := ReadFile("spots.json", config.DefaultImportSettings())
	assert.Error(t, err)
}
