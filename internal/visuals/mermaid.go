package visuals

import (
	"fmt"
	"math"
	"strings"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"
	"pbloss-mcp/internal/simulation"
)

// maxPoints is roughly where Mermaid's xychart starts overlapping labels.
const maxPoints = 60

// GenerateScoreChart creates a Mermaid xychart-beta of the mean score against candidate Pb-loss age.
func GenerateScoreChart(ages, scores []float64) string {
	if len(ages) == 0 || len(ages) != len(scores) {
		return ""
	}

	var labels []string
	var values []string

	subsampleRate := 1
	if len(ages) > maxPoints {
		subsampleRate = int(math.Ceil(float64(len(ages)) / maxPoints))
	}
	for i := range ages {
		if i%subsampleRate == 0 || i == len(ages)-1 {
			labels = append(labels, fmt.Sprintf("\"%.0f\"", ages[i]/concordia.Ma))
			values = append(values, fmt.Sprintf("%.3f", scores[i]))
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Mean Score by Pb-loss Age (lower is better)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Score\" 0 --> 1\n")
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateRunAgeHistogram creates a Mermaid bar chart of the per-run optimal ages.
func GenerateRunAgeHistogram(runs []*model.MonteCarloRun, bins int) string {
	if len(runs) == 0 || bins <= 0 {
		return ""
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range runs {
		age := r.OptimalPbLossAge / concordia.Ma
		lo = math.Min(lo, age)
		hi = math.Max(hi, age)
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		bins, width = 1, 1
	}

	counts := make([]int, bins)
	for _, r := range runs {
		b := int((r.OptimalPbLossAge/concordia.Ma - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
	}

	var labels []string
	var values []string
	maxVal := 0
	for i, c := range counts {
		labels = append(labels, fmt.Sprintf("\"%.0f\"", lo+(float64(i)+0.5)*width))
		values = append(values, fmt.Sprintf("%d", c))
		if c > maxVal {
			maxVal = c
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Optimal Pb-loss Age per Run (Ma)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Runs\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateOutcomePie creates a Mermaid Pie chart of how a batch's samples ended.
func GenerateOutcomePie(outcomes []simulation.Outcome) string {
	if len(outcomes) == 0 {
		return ""
	}

	counts := map[simulation.Status]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("pie title Sample Outcomes\n")
	for _, st := range []simulation.Status{simulation.Completed, simulation.Skipped, simulation.Cancelled, simulation.Failed} {
		if counts[st] > 0 {
			sb.WriteString(fmt.Sprintf("    \"%s\" : %d\n", st, counts[st]))
		}
	}
	sb.WriteString("```")
	return sb.String()
}
