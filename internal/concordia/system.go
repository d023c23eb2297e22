package concordia

import (
	"errors"
	"fmt"
	"math"

	"pbloss-mcp/internal/numeric"
)

// ErrUnsupportedSigmas is returned for an error-ellipse confidence other than 1σ or 2σ.
var ErrUnsupportedSigmas = errors.New("unsupported ellipse confidence")

// discordanceNoise is the level below which a discordance is treated as zero.
const discordanceNoise = 1e-10

// System is one of the two ratio coordinate systems. X and Y are the plotted
// axes of the system; all methods take and return coordinates in that order.
type System interface {
	Name() string
	// Point returns the curve's (x, y) at age.
	Point(age float64) (x, y float64)
	// ConcordantAge returns the age whose curve point is closest to (x, y).
	ConcordantAge(x, y float64) (float64, error)
	// Discordance returns the fractional age mismatch, floored at zero.
	Discordance(x, y float64) (float64, error)
	// IsConcordantEllipse tests whether the 1σ error ellipse of (x, y), scaled
	// to the requested confidence, touches the curve.
	IsConcordantEllipse(x, xErr, y, yErr float64, sigmas int) (bool, error)
	// DiscordantAge projects (x, y) onto the curve along the chord through the
	// curve point at anchorAge. ok is false when no intersection exists.
	DiscordantAge(anchorAge, x, y float64) (age float64, ok bool)
}

// MahalanobisRadius converts a confidence in sigmas to the squared radius of
// the matching 2-D error ellipse.
func MahalanobisRadius(sigmas int) (float64, error) {
	var p float64
	switch sigmas {
	case 1:
		p = 0.6827
	case 2:
		p = 0.9545
	default:
		return 0, fmt.Errorf("%w: %d sigmas", ErrUnsupportedSigmas, sigmas)
	}
	return -2 * math.Log(1-p), nil
}

func closestAge(distance func(t float64) float64) (float64, error) {
	age, _, err := numeric.MinimizeBounded(distance, LowerAge, UpperAge, minTolerance)
	if err != nil {
		return 0, fmt.Errorf("minimising distance to concordia: %w", err)
	}
	return age, nil
}

func floorDiscordance(d float64) float64 {
	if d > discordanceNoise {
		return d
	}
	return 0
}

// TeraWasserburg plots x = ²³⁸U/²⁰⁶Pb against y = ²⁰⁷Pb/²⁰⁶Pb.
type TeraWasserburg struct{}

func (TeraWasserburg) Name() string { return "Tera-Wasserburg" }

func (TeraWasserburg) Point(age float64) (float64, float64) {
	return U238Pb206FromAge(age), Pb207Pb206FromAge(age)
}

func (TeraWasserburg) ConcordantAge(x, y float64) (float64, error) {
	return closestAge(func(t float64) float64 {
		return math.Hypot(x-U238Pb206FromAge(t), y-Pb207Pb206FromAge(t))
	})
}

func (TeraWasserburg) Discordance(x, y float64) (float64, error) {
	uPbAge := AgeFromU238Pb206(x)
	pbPbAge, err := AgeFromPb207Pb206(y)
	if err != nil {
		return 0, err
	}
	return floorDiscordance((pbPbAge - uPbAge) / pbPbAge), nil
}

func (TeraWasserburg) IsConcordantEllipse(x, xErr, y, yErr float64, sigmas int) (bool, error) {
	s, err := MahalanobisRadius(sigmas)
	if err != nil {
		return false, err
	}

	// Degenerate ellipses collapse to a 1-D interval test.
	if xErr == 0 {
		local := Pb207Pb206FromU238Pb206(x)
		return math.Abs(local-y) <= yErr*math.Sqrt(s), nil
	}
	if yErr == 0 {
		local, err := U238Pb206FromPb207Pb206(y)
		if err != nil {
			return false, err
		}
		return math.Abs(local-x) <= xErr*math.Sqrt(s), nil
	}

	_, minimum, err := numeric.MinimizeBounded(func(t float64) float64 {
		dx := (x - U238Pb206FromAge(t)) / xErr
		dy := (y - Pb207Pb206FromAge(t)) / yErr
		return dx*dx + dy*dy
	}, LowerAge, UpperAge, minTolerance)
	if err != nil {
		return false, fmt.Errorf("minimising distance to error ellipse: %w", err)
	}
	return minimum <= s, nil
}

func (TeraWasserburg) DiscordantAge(anchorAge, x, y float64) (float64, bool) {
	x1, y1 := U238Pb206FromAge(anchorAge), Pb207Pb206FromAge(anchorAge)
	if !(x > 0) || x1 <= x {
		return 0, false
	}

	m := (y - y1) / (x - x1)
	c := y1 - m*x1

	lower := AgeFromU238Pb206(math.Min(x1, x))
	if !(lower < UpperAge) {
		return 0, false
	}

	f := func(t float64) float64 {
		return Pb207Pb206FromAge(t) - (m*U238Pb206FromAge(t) + c)
	}
	return solveChord(f, lower)
}

// Wetherill plots x = ²⁰⁷Pb/²³⁵U against y = ²⁰⁶Pb/²³⁸U.
type Wetherill struct{}

// anchorMargin moves the Wetherill bracket past the anchor's own root.
const anchorMargin = 1e3

func (Wetherill) Name() string { return "Wetherill" }

func (Wetherill) Point(age float64) (float64, float64) {
	return Pb207U235FromAge(age), Pb206U238FromAge(age)
}

func (Wetherill) ConcordantAge(x, y float64) (float64, error) {
	return closestAge(func(t float64) float64 {
		return math.Hypot(x-Pb207U235FromAge(t), y-Pb206U238FromAge(t))
	})
}

func (Wetherill) Discordance(x, y float64) (float64, error) {
	t75 := AgeFromPb207U235(x)
	t68 := AgeFromPb206U238(y)
	return floorDiscordance((t75 - t68) / t75), nil
}

func (Wetherill) IsConcordantEllipse(x, xErr, y, yErr float64, sigmas int) (bool, error) {
	s, err := MahalanobisRadius(sigmas)
	if err != nil {
		return false, err
	}

	if yErr == 0 {
		local := Pb207U235FromAge(AgeFromPb206U238(y))
		return math.Abs(x-local) <= xErr*math.Sqrt(s), nil
	}
	if xErr == 0 {
		local := Pb206U238FromAge(AgeFromPb207U235(x))
		return math.Abs(y-local) <= yErr*math.Sqrt(s), nil
	}

	_, minimum, err := numeric.MinimizeBounded(func(t float64) float64 {
		dx := (x - Pb207U235FromAge(t)) / xErr
		dy := (y - Pb206U238FromAge(t)) / yErr
		return dx*dx + dy*dy
	}, LowerAge, UpperAge, minTolerance)
	if err != nil {
		return false, fmt.Errorf("minimising distance to error ellipse: %w", err)
	}
	return minimum <= s, nil
}

func (Wetherill) DiscordantAge(anchorAge, x, y float64) (float64, bool) {
	x1, y1 := Pb207U235FromAge(anchorAge), Pb206U238FromAge(anchorAge)
	if x1 >= x || math.IsNaN(x) {
		return 0, false
	}

	start := anchorAge + anchorMargin
	if start >= UpperAge {
		return 0, false
	}

	m := (y - y1) / (x - x1)
	c := y1 - m*x1

	f := func(t float64) float64 {
		return Pb206U238FromAge(t) - (m*Pb207U235FromAge(t) + c)
	}
	return solveChord(f, start)
}

func solveChord(f func(float64) float64, lower float64) (float64, bool) {
	v1, v2 := f(lower), f(UpperAge)
	if math.IsNaN(v1) || math.IsNaN(v2) || numeric.SameSign(v1, v2) {
		return 0, false
	}
	age, err := numeric.FindRoot(f, lower, UpperAge, rootTolerance)
	if err != nil {
		return 0, false
	}
	return age, true
}
