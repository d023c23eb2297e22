package mcp

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const settingsDescription = "Optional calculation overrides keyed by setting name: method (percentage|ellipse), " +
	"discordance-cutoff, ellipse-sigmas, min-age-ma, max-age-ma, age-samples, monte-carlo-runs, " +
	"dissimilarity-test, penalise-invalid-ages, system (tera-wasserburg|wetherill), seed. Values are strings."

var sourceProperties = map[string]string{
	"path":     "Path to a CSV or XLSX file of spot analyses.",
	"csv":      "Inline CSV content, used when path is empty.",
	"samples":  "Only process these sample names. Empty means every sample in the file.",
	"settings": settingsDescription,
}

func estimateProperties() map[string]string {
	props := map[string]string{"charts": "Include Mermaid charts of the score curve and per-run optima."}
	for k, v := range sourceProperties {
		props[k] = v
	}
	return props
}

func (s *Server) addTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name: "classify_spots",
		Description: "Classify every spot in a file as concordant or discordant using the configured method " +
			"(discordance percentage or error ellipse). Guidance: run this before 'estimate_pb_loss_age' to check " +
			"that each sample has concordant spots and at least three discordant spots.",
		InputSchema: mustSchema[SourceInput](sourceProperties),
	}, s.handleClassifySpots)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "estimate_pb_loss_age",
		Description: "Estimate the optimal Pb-loss age of each sample by Monte Carlo sampling: every run perturbs the " +
			"spots within their errors, reconstructs discordant ages for each candidate Pb-loss age and scores them " +
			"against the concordant ages with a KS test. Returns the mean-score optimum and a 95% interval per sample.\n\n" +
			"Samples without concordant spots, or with fewer than three discordant spots, are skipped with a reason.",
		InputSchema: mustSchema[EstimateInput](estimateProperties()),
	}, s.handleEstimate)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "concordia_point",
		Description: "Return the concordia ratios for an age in both Tera-Wasserburg and Wetherill space.",
		InputSchema: mustSchema[ConcordiaInput](map[string]string{
			"age_ma": "Age in Ma, between 1 and 6000.",
		}),
	}, s.handleConcordiaPoint)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_estimates",
		Description: "List previously stored estimates, newest first. Requires a configured result store.",
		InputSchema: mustSchema[ListInput](map[string]string{
			"sample_name": "Only estimates for this sample.",
			"limit":       "Maximum number of estimates. Zero means all.",
		}),
	}, s.handleListEstimates)
}

// mustSchema infers the input schema for T and attaches property descriptions.
func mustSchema[T any](descriptions map[string]string) *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("input schema: %v", err))
	}
	for name, desc := range descriptions {
		if p, ok := schema.Properties[name]; ok {
			p.Description = desc
		}
	}
	return schema
}
