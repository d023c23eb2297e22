package simulation

import (
	"fmt"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"
)

// Classify splits spots into concordant and discordant using the configured
// method. Results are aligned with spots. Cancellation is polled before each
// spot; on cancellation the partial results are discarded.
func Classify(spots []model.Spot, settings *model.CalculationSettings, sample string, cancel func() bool, progress Progress) ([]model.Concordance, error) {
	if cancel == nil {
		cancel = never
	}
	if progress == nil {
		progress = NopProgress{}
	}
	system := SystemFor(settings.System)

	out := make([]model.Concordance, len(spots))
	for i := range spots {
		if cancel() {
			return nil, ErrCancelled
		}
		c, err := classifySpot(system, &spots[i], settings)
		if err != nil {
			return nil, fmt.Errorf("classify spot %d: %w", spots[i].Index, err)
		}
		out[i] = c
		progress.Report(Event{
			Kind:        ClassificationProgress,
			Fraction:    float64(i+1) / float64(len(spots)),
			SampleName:  sample,
			SpotIndex:   spots[i].Index,
			Concordance: &c,
		})
	}
	return out, nil
}

func classifySpot(system concordia.System, spot *model.Spot, settings *model.CalculationSettings) (model.Concordance, error) {
	x, xErr, y, yErr, ok := spot.Coordinates(settings.System)
	if !ok {
		return model.Concordance{}, fmt.Errorf("spot has non-positive ratios")
	}

	var c model.Concordance
	switch settings.ClassificationMethod {
	case model.Percentage:
		d, err := system.Discordance(x, y)
		if err != nil {
			return c, err
		}
		c.Discordance = &d
		c.Concordant = d < settings.DiscordancePercentageCutoff
	case model.ErrorEllipse:
		concordant, err := system.IsConcordantEllipse(x, xErr, y, yErr, settings.DiscordanceEllipseSigmas)
		if err != nil {
			return c, err
		}
		c.Concordant = concordant
	default:
		return c, fmt.Errorf("unknown classification method %v", settings.ClassificationMethod)
	}

	if c.Concordant {
		age, err := system.ConcordantAge(x, y)
		if err != nil {
			return c, err
		}
		c.Age = &age
	}
	return c, nil
}
