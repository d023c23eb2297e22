// Package numeric holds the scalar solvers used by the concordia calculations.
package numeric

import (
	"errors"
	"math"
)

const (
	maxRootIter = 200
	machEps     = 1e-15
)

var (
	// ErrNotBracketed is returned when f(a) and f(b) share a sign.
	ErrNotBracketed = errors.New("root not bracketed")
	// ErrNoConvergence is returned when a solver exhausts its iteration budget.
	ErrNoConvergence = errors.New("solver did not converge")
)

// FindRoot locates a root of f inside [a, b] using Brent's method.
// The endpoints must bracket a sign change; tol is an absolute tolerance on x.
func FindRoot(f func(float64) float64, a, b, tol float64) (float64, error) {
	fa, fb := f(a), f(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return 0, ErrNotBracketed
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if fa*fb > 0 {
		return 0, ErrNotBracketed
	}

	c, fc := a, fa
	d, e := b-a, b-a
	for i := 0; i < maxRootIter; i++ {
		if fb*fc > 0 {
			c, fc = a, fa
			d, e = b-a, b-a
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*machEps*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if a != c && fa != fc {
				// Inverse quadratic interpolation
				r := fb / fc
				t := fa / fc
				p = s * (2*xm*t*(t-r) - (b-a)*(r-1))
				q = (t - 1) * (r - 1) * (s - 1)
			} else {
				// Secant
				p = 2 * xm * s
				q = 1 - s
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e, d = d, p/q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
		if math.IsNaN(fb) {
			return 0, ErrNoConvergence
		}
	}
	return 0, ErrNoConvergence
}

// SameSign reports whether two bracket values lie strictly on the same side of zero.
func SameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
