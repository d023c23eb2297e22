package simulation

import (
	"fmt"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"
)

const pbLossAge = 1000 * concordia.Ma

// crystallisationAges are the concordant population, 2000 to 3800 Ma.
func crystallisationAges() []float64 {
	ages := make([]float64, 10)
	for i := range ages {
		ages[i] = (2000 + 200*float64(i)) * concordia.Ma
	}
	return ages
}

// mixedPoint is the TW point a fraction of the way from the Pb-loss point to
// the crystallisation point.
func mixedPoint(age, fraction float64) (float64, float64) {
	ox, oy := concordia.TeraWasserburg{}.Point(age)
	lx, ly := concordia.TeraWasserburg{}.Point(pbLossAge)
	return fraction*ox + (1-fraction)*lx, fraction*oy + (1-fraction)*ly
}

func measured(v, relErr float64) model.Measurement {
	return model.Measurement{Value: v, Error: v * relErr, Type: model.Absolute, Sigmas: 1}
}

// scenarioSample has ten concordant spots and ten spots that lost Pb at
// 1000 Ma, with the given relative 1σ error on every ratio.
func scenarioSample(name string, relErr float64, fractions ...float64) *model.Sample {
	var spots []*model.Spot
	for i, age := range crystallisationAges() {
		x, y := concordia.TeraWasserburg{}.Point(age)
		spots = append(spots, model.NewSpot(i, name, measured(x, relErr), measured(y, relErr), nil))
	}
	for i, age := range crystallisationAges() {
		x, y := mixedPoint(age, fractions[i%len(fractions)])
		spots = append(spots, model.NewSpot(len(spots), name, measured(x, relErr), measured(y, relErr), nil))
	}
	return model.NewSample(name, spots)
}

func scenarioSettings(runs int) *model.CalculationSettings {
	s := model.DefaultCalculationSettings()
	s.MonteCarloRuns = runs
	s.Seed = 42
	return &s
}

// recorder keeps every event for inspection.
type recorder struct {
	events []Event
}

func (r *recorder) Report(e Event) { r.events = append(r.events, e) }

func (r *recorder) kinds(k EventKind) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) terminal() []Event {
	var out []Event
	for _, e := range r.events {
		if e.Kind.Terminal() {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) String() string {
	return fmt.Sprintf("%d events", len(r.events))
}
