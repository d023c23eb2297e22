package dissimilarity

import (
	"math"

	"pbloss-mcp/internal/model"
)

// Evaluate scores one candidate Pb-loss age. Reconstructions that failed are
// dropped before the test and, when penalise is set, push the score toward 1.
func Evaluate(pbLossAge float64, concordantAges []float64, reconstructed []model.Reconstruction, test model.DissimilarityTest, penalise bool) model.PbLossAgeStatistic {
	validConcordant := make([]float64, 0, len(concordantAges))
	for _, age := range concordantAges {
		if isValidAge(age) {
			validConcordant = append(validConcordant, age)
		}
	}

	validDiscordant := make([]float64, 0, len(reconstructed))
	for _, r := range reconstructed {
		if r.OK && isValidAge(r.Age) {
			validDiscordant = append(validDiscordant, r.Age)
		}
	}
	invalid := len(reconstructed) - len(validDiscordant)

	ts := Perform(test, validConcordant, validDiscordant)
	score := ts.D
	if penalise && len(reconstructed) > 0 {
		score = Penalise(ts.D, float64(invalid)/float64(len(reconstructed)))
	}

	return model.PbLossAgeStatistic{
		PbLossAge:           pbLossAge,
		ValidConcordantAges: validConcordant,
		ValidDiscordantAges: validDiscordant,
		NumberOfAges:        len(reconstructed),
		NumberOfInvalidAges: invalid,
		TestStatistic:       ts,
		TestScore:           ts.D,
		Score:               clamp01(score),
	}
}

// Penalise blends a test score with the fraction of invalid reconstructions.
func Penalise(score, invalidFraction float64) float64 {
	return score + (1-score)*invalidFraction
}

func isValidAge(age float64) bool {
	return age > 0 && !math.IsNaN(age) && !math.IsInf(age, 0)
}
