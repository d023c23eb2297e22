package simulation

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"pbloss-mcp/internal/model"
)

// draws holds perturbed coordinates indexed [run][spot].
type draws struct {
	x [][]float64
	y [][]float64
}

// perturb precomputes every run's Gaussian draws for a set of spots so each
// run sees its own slice of one random stream.
func perturb(src rand.Source, spots []model.Spot, system model.ConcordiaSystem, runs int) draws {
	type axis struct{ x, y distuv.Normal }
	axes := make([]axis, len(spots))
	for i := range spots {
		x, xErr, y, yErr, _ := spots[i].Coordinates(system)
		axes[i] = axis{
			x: distuv.Normal{Mu: x, Sigma: math.Abs(xErr), Src: src},
			y: distuv.Normal{Mu: y, Sigma: math.Abs(yErr), Src: src},
		}
	}

	d := draws{x: make([][]float64, runs), y: make([][]float64, runs)}
	for r := 0; r < runs; r++ {
		d.x[r] = make([]float64, len(spots))
		d.y[r] = make([]float64, len(spots))
		for i := range axes {
			d.x[r][i] = axes[i].x.Rand()
			d.y[r][i] = axes[i].y.Rand()
		}
	}
	return d
}

// newSource seeds the per-sample generator. A zero seed draws from the
// runtime's entropy instead.
func newSource(seed uint64, stream uint64) rand.Source {
	if seed == 0 {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return rand.NewPCG(seed, stream)
}
