// Package dissimilarity scores how far a set of reconstructed ages is from
// the concordant-age distribution.
package dissimilarity

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"pbloss-mcp/internal/model"
)

// exactLimit is the largest n1·n2 for which the p-value is computed from
// the exact two-sample distribution rather than the asymptotic series.
const exactLimit = 10000

// NoSimilarity is returned when either side of a comparison is empty.
var NoSimilarity = model.TestStatistic{D: 1.0, P: 0.0}

// Perform runs the selected two-sample test. Inputs are not modified.
func Perform(test model.DissimilarityTest, a, b []float64) model.TestStatistic {
	if len(a) == 0 || len(b) == 0 {
		return NoSimilarity
	}
	switch test {
	case model.KolmogorovSmirnov:
		return kolmogorovSmirnov(a, b)
	default:
		return NoSimilarity
	}
}

func kolmogorovSmirnov(a, b []float64) model.TestStatistic {
	x := sortedCopy(a)
	y := sortedCopy(b)

	d := stat.KolmogorovSmirnov(x, nil, y, nil)
	if len(x)*len(y) <= exactLimit {
		return model.TestStatistic{D: d, P: exactPValue(d, len(x), len(y))}
	}
	n1, n2 := float64(len(x)), float64(len(y))
	en := math.Sqrt(n1 * n2 / (n1 + n2))
	return model.TestStatistic{D: d, P: kolmogorovQ((en + 0.12 + 0.11/en) * d)}
}

// exactPValue returns P(D ≥ d) for samples of size m and n by counting the
// lattice paths that stay strictly inside the band |i/m - j/n| < d. Each
// row is scaled by the binomial coefficient so the counts never overflow.
func exactPValue(d float64, m, n int) float64 {
	if m > n {
		m, n = n, m
	}
	md, nd := float64(m), float64(n)
	q := (0.5 + math.Floor(d*md*nd-1e-7)) / (md * nd)

	u := make([]float64, n+1)
	for j := range u {
		if float64(j)/nd <= q {
			u[j] = 1
		}
	}
	for i := 1; i <= m; i++ {
		w := float64(i) / float64(i+n)
		if float64(i)/md > q {
			u[0] = 0
		} else {
			u[0] *= w
		}
		for j := 1; j <= n; j++ {
			if math.Abs(float64(i)/md-float64(j)/nd) > q {
				u[j] = 0
			} else {
				u[j] = w*u[j] + u[j-1]
			}
		}
	}
	return clamp01(1 - u[n])
}

// kolmogorovQ is the complementary Kolmogorov distribution
// Q(λ) = 2 Σ (-1)^(j-1) exp(-2 j² λ²).
func kolmogorovQ(lambda float64) float64 {
	const (
		eps1 = 1e-3
		eps2 = 1e-8
	)
	a2 := -2.0 * lambda * lambda
	fac := 2.0
	sum := 0.0
	prev := 0.0
	for j := 1; j <= 100; j++ {
		term := fac * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= eps1*prev || math.Abs(term) <= eps2*sum {
			return clamp01(sum)
		}
		fac = -fac
		prev = math.Abs(term)
	}
	// Series failed to converge; only happens as λ → 0.
	return 1.0
}

func sortedCopy(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	sort.Float64s(c)
	return c
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
