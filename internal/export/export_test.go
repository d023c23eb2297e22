package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"
)

func exportedSamples() []*model.Sample {
	a := model.NewSample("A", nil)
	a.AddRun(&model.MonteCarloRun{RunNumber: 0, SampleName: "A", OptimalPbLossAge: 1000.123 * concordia.Ma})
	a.AddRun(&model.MonteCarloRun{RunNumber: 1, SampleName: "A", OptimalPbLossAge: 987.5 * concordia.Ma})
	a.SetOptimalAge(model.OptimalAge{Age: 1000 * concordia.Ma, LowerBound: 950 * concordia.Ma, UpperBound: 1050 * concordia.Ma, Runs: 2})
	a.Processed = true

	b := model.NewSample("B", nil)
	b.SkipReason = "Sample has no discordant spots"
	return []*model.Sample{a, b}
}

func TestWriteRunsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRunsCSV(&buf, RunRows(exportedSamples())))
	assert.Equal(t, "SampleID,Run,Pb loss age (Ma)\nA,0,1000.12\nA,1,987.50\n", buf.String())
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteWorkbook(path, exportedSamples()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Runs"}, f.GetSheetList())

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, SummaryHeaders, summary[0])
	assert.Equal(t, []string{"A", "processed", "2", "1000", "950", "1050"}, summary[1][:6])
	assert.Equal(t, "skipped: Sample has no discordant spots", summary[2][1])

	runs, err := f.GetRows("Runs")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"A", "1", "987.5"}, runs[2])
}
