package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/config"
	"pbloss-mcp/internal/model"
	"pbloss-mcp/internal/store"
)

// spotCSV writes a sample of concordant spots plus spots that lost Pb at
// 1000 Ma, and a second sample with too few discordant spots.
func spotCSV() string {
	var b strings.Builder
	b.WriteString("Sample,238U/206Pb,2s,207Pb/206Pb,2s\n")
	row := func(name string, x, y float64) {
		fmt.Fprintf(&b, "%s,%.8f,%.8f,%.8f,%.8f\n", name, x, 0.02*x, y, 0.02*y)
	}
	tw := concordia.TeraWasserburg{}
	lx, ly := tw.Point(1000 * concordia.Ma)
	for i := 0; i < 10; i++ {
		ox, oy := tw.Point((2000 + 200*float64(i)) * concordia.Ma)
		row("good", ox, oy)
		f := 0.3
		if i%2 == 1 {
			f = 0.5
		}
		row("good", f*ox+(1-f)*lx, f*oy+(1-f)*ly)
	}
	for i := 0; i < 5; i++ {
		ox, oy := tw.Point((2000 + 300*float64(i)) * concordia.Ma)
		row("few", ox, oy)
	}
	ox, oy := tw.Point(2500 * concordia.Ma)
	row("few", 0.5*ox+0.5*lx, 0.5*oy+0.5*ly)
	return b.String()
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.FromEnv(t.TempDir())
	cfg.RunLogDir = filepath.Join(t.TempDir(), "runs")
	return NewServer(cfg, model.DefaultCalculationSettings(), config.DefaultImportSettings(), "test")
}

var fastSettings = map[string]string{
	"monte-carlo-runs": "3",
	"age-samples":      "40",
	"seed":             "7",
}

func TestClassifySpots(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleClassifySpots(context.Background(), &mcp.CallToolRequest{}, SourceInput{CSV: spotCSV()})
	require.NoError(t, err)

	assert.Equal(t, "Tera-Wasserburg", out.System)
	require.Len(t, out.Samples, 2)
	good := out.Samples[0]
	assert.Equal(t, "good", good.Name)
	assert.Equal(t, 10, good.Concordant)
	assert.Equal(t, 10, good.Discordant)
	assert.Len(t, good.Spots, 20)
	require.NotNil(t, good.Spots[0].AgeMa)
	assert.InDelta(t, 2000, *good.Spots[0].AgeMa, 1)
	assert.Nil(t, good.Spots[1].AgeMa)
	assert.Equal(t, 1, out.Samples[1].Discordant)
}

func TestClassifySpots_BadOverride(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleClassifySpots(context.Background(), &mcp.CallToolRequest{}, SourceInput{
		CSV:      spotCSV(),
		Settings: map[string]string{"min-age-ma": "abc"},
	})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "min-age-ma", verr.Field)
}

func TestEstimate(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "pbloss.db"))
	require.NoError(t, err)
	defer db.Close()
	s := newTestServer(t).WithStore(db)

	ctx := context.Background()
	_, out, err := s.handleEstimate(ctx, &mcp.CallToolRequest{}, EstimateInput{CSV: spotCSV(), Settings: fastSettings, Charts: true})
	require.NoError(t, err)

	assert.Contains(t, out.Summary, "Processed 2 samples: 1 completed, 1 skipped")
	require.Len(t, out.Samples, 2)

	good := out.Samples[0]
	assert.Equal(t, "completed", good.Status)
	assert.Equal(t, 3, good.Runs)
	require.NotNil(t, good.AgeMa)
	assert.InDelta(t, 1000, *good.AgeMa, 300)
	assert.LessOrEqual(t, *good.LowerMa, *good.UpperMa)
	assert.NotEmpty(t, good.EstimateID)
	require.Len(t, good.Charts, 2)
	assert.Contains(t, good.Charts[0], "Mean Score")
	assert.Contains(t, out.Chart, "pie title Sample Outcomes")

	few := out.Samples[1]
	assert.Equal(t, "skipped", few.Status)
	assert.Contains(t, few.Reason, "only 1 discordant spots")
	assert.Nil(t, few.AgeMa)
	assert.Empty(t, few.Charts)

	_, err = os.Stat(filepath.Join(s.cfg.RunLogDir, good.SampleID+".jsonl"))
	assert.NoError(t, err)
	assert.Empty(t, s.runs.Samples(), "saved run logs are not kept in memory")

	_, listed, err := s.handleListEstimates(ctx, &mcp.CallToolRequest{}, ListInput{SampleName: "good"})
	require.NoError(t, err)
	require.Len(t, listed.Estimates, 1)
	assert.Equal(t, good.EstimateID, listed.Estimates[0].ID)
}

func TestEstimate_SelectsSamples(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleEstimate(context.Background(), &mcp.CallToolRequest{}, EstimateInput{
		CSV: spotCSV(), Samples: []string{"few"}, Settings: fastSettings,
	})
	require.NoError(t, err)
	require.Len(t, out.Samples, 1)
	assert.Equal(t, "few", out.Samples[0].SampleName)

	_, _, err = s.handleEstimate(context.Background(), &mcp.CallToolRequest{}, EstimateInput{CSV: spotCSV(), Samples: []string{"nope"}})
	assert.ErrorContains(t, err, `sample "nope" not found`)
}

func TestEstimate_RequiresSource(t *testing.T) {
	_, _, err := newTestServer(t).handleEstimate(context.Background(), &mcp.CallToolRequest{}, EstimateInput{})
	assert.Error(t, err)
}

func TestEstimate_RelativePath(t *testing.T) {
	s := newTestServer(t)
	s.cfg.DataPath = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.DataPath, "spots.csv"), []byte(spotCSV()), 0o644))

	_, out, err := s.handleClassifySpots(context.Background(), &mcp.CallToolRequest{}, SourceInput{Path: "spots.csv"})
	require.NoError(t, err)
	assert.Len(t, out.Samples, 2)
}

func TestListEstimates_NoStore(t *testing.T) {
	_, _, err := newTestServer(t).handleListEstimates(context.Background(), &mcp.CallToolRequest{}, ListInput{})
	assert.ErrorIs(t, err, errNoStore)
}

func TestConcordiaPoint(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleConcordiaPoint(context.Background(), &mcp.CallToolRequest{}, ConcordiaInput{AgeMa: 1000})
	require.NoError(t, err)
	assert.InDelta(t, 1/out.Wetherill.Y, out.TeraWasserburg.X, 1e-9)
	assert.Equal(t, "238U/206Pb", out.TeraWasserburg.XLabel)

	_, _, err = s.handleConcordiaPoint(context.Background(), &mcp.CallToolRequest{}, ConcordiaInput{AgeMa: 7000})
	assert.Error(t, err)
}

func TestServerOverTransport(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.Handler().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"classify_spots", "estimate_pb_loss_age", "concordia_point", "list_estimates"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "concordia_point",
		Arguments: map[string]any{"age_ma": 1000.0},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	var out ConcordiaOutput
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	assert.Equal(t, 1000.0, out.AgeMa)
}
