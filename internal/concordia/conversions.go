// Package concordia converts between ages and U-Pb isotope ratios and
// performs the geometric operations on the concordia curve: concordant age
// fitting, discordance classification and chord reconstruction.
//
// Ages are expressed in years throughout.
package concordia

import (
	"fmt"
	"math"

	"pbloss-mcp/internal/numeric"
)

const (
	U238DecayConstant = 1.55125e-10
	U235DecayConstant = 9.8485e-10
	U238U235Ratio     = 137.818

	// LowerAge and UpperAge bound every age search.
	LowerAge = 1e6
	UpperAge = 6000e6

	// Ma converts between years and millions of years.
	Ma = 1e6

	rootTolerance = 1e-2 // years
	minTolerance  = 1e-5 // years
)

// Tera-Wasserburg

// U238Pb206FromAge returns the ²³⁸U/²⁰⁶Pb ratio of the curve at age.
func U238Pb206FromAge(age float64) float64 {
	return 1 / Pb206U238FromAge(age)
}

// Pb207Pb206FromAge returns the ²⁰⁷Pb/²⁰⁶Pb ratio of the curve at age.
func Pb207Pb206FromAge(age float64) float64 {
	return Pb207U235FromAge(age) * (1 / U238U235Ratio) * U238Pb206FromAge(age)
}

// AgeFromU238Pb206 inverts U238Pb206FromAge.
func AgeFromU238Pb206(u238pb206 float64) float64 {
	return math.Log(1/u238pb206+1) / U238DecayConstant
}

// AgeFromPb207Pb206 inverts Pb207Pb206FromAge. There is no closed form, so the
// age is found by a bracketed root search over [LowerAge, UpperAge].
func AgeFromPb207Pb206(pb207pb206 float64) (float64, error) {
	f := func(t float64) float64 { return Pb207Pb206FromAge(t) - pb207pb206 }
	age, err := numeric.FindRoot(f, LowerAge, UpperAge, rootTolerance)
	if err != nil {
		return 0, fmt.Errorf("no age in [%g, %g] Ma for 207Pb/206Pb=%g: %w", LowerAge/Ma, UpperAge/Ma, pb207pb206, err)
	}
	return age, nil
}

// Pb207Pb206FromU238Pb206 projects a ²³⁸U/²⁰⁶Pb value onto the curve.
func Pb207Pb206FromU238Pb206(u238pb206 float64) float64 {
	return Pb207Pb206FromAge(AgeFromU238Pb206(u238pb206))
}

// U238Pb206FromPb207Pb206 projects a ²⁰⁷Pb/²⁰⁶Pb value onto the curve.
func U238Pb206FromPb207Pb206(pb207pb206 float64) (float64, error) {
	age, err := AgeFromPb207Pb206(pb207pb206)
	if err != nil {
		return 0, err
	}
	return U238Pb206FromAge(age), nil
}

// Wetherill

// Pb206U238FromAge returns the ²⁰⁶Pb/²³⁸U ratio of the curve at age.
func Pb206U238FromAge(age float64) float64 {
	return math.Exp(U238DecayConstant*age) - 1
}

// Pb207U235FromAge returns the ²⁰⁷Pb/²³⁵U ratio of the curve at age.
func Pb207U235FromAge(age float64) float64 {
	return math.Exp(U235DecayConstant*age) - 1
}

// AgeFromPb206U238 inverts Pb206U238FromAge.
func AgeFromPb206U238(ratio float64) float64 {
	return math.Log(ratio+1) / U238DecayConstant
}

// AgeFromPb207U235 inverts Pb207U235FromAge.
func AgeFromPb207U235(ratio float64) float64 {
	return math.Log(ratio+1) / U235DecayConstant
}
