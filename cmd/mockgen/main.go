package main

import (
	"flag"
	"fmt"
	"os"

	"pbloss-mcp/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, noisy, recent")
	out := flag.String("out", "./.cache/mock_spots.csv", "Output CSV file")
	samples := flag.Int("samples", 1, "Number of samples to generate")
	concordant := flag.Int("concordant", 20, "Concordant spots per sample")
	discordant := flag.Int("discordant", 20, "Discordant spots per sample")
	lossAge := flag.Float64("pb-loss-age", 0, "Pb-loss age in Ma (0 uses the scenario default)")
	seed := flag.Uint64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:    *scenario,
		Samples:     *samples,
		Concordant:  *concordant,
		Discordant:  *discordant,
		PbLossAgeMa: *lossAge,
		Seed:        *seed,
	}

	fmt.Printf("Generating scenario '%s' (%d samples, %d+%d spots each) to %s...\n", cfg.Scenario, cfg.Samples, cfg.Concordant, cfg.Discordant, *out)

	rows := engine.Generate(cfg)
	if err := engine.Save(*out, rows); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
