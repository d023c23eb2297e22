package numeric

import "math"

const maxMinimizeIter = 500

var (
	goldenMean = 0.5 * (3.0 - math.Sqrt(5.0))
	sqrtEps    = math.Sqrt(2.2e-16)
)

// MinimizeBounded finds a local minimum of f on [lo, hi] with Brent's
// bounded method (golden section with parabolic steps). xatol is the
// absolute tolerance on the abscissa.
func MinimizeBounded(f func(float64) float64, lo, hi, xatol float64) (x float64, fx float64, err error) {
	a, b := lo, hi
	fulc := a + goldenMean*(b-a)
	nfc, xf := fulc, fulc
	rat, e := 0.0, 0.0

	x = xf
	fx = f(x)
	ffulc, fnfc := fx, fx

	xm := 0.5 * (a + b)
	tol1 := sqrtEps*math.Abs(xf) + xatol/3.0
	tol2 := 2.0 * tol1

	for i := 0; math.Abs(xf-xm) > tol2-0.5*(b-a); i++ {
		if i >= maxMinimizeIter {
			return xf, fx, ErrNoConvergence
		}

		golden := true
		if math.Abs(e) > tol1 {
			golden = false
			r := (xf - nfc) * (fx - ffulc)
			q := (xf - fulc) * (fx - fnfc)
			p := (xf-fulc)*q - (xf-nfc)*r
			q = 2.0 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			r = e
			e = rat

			if math.Abs(p) < math.Abs(0.5*q*r) && p > q*(a-xf) && p < q*(b-xf) {
				rat = p / q
				x = xf + rat
				if (x-a) < tol2 || (b-x) < tol2 {
					rat = tol1 * signOrOne(xm-xf)
				}
			} else {
				golden = true
			}
		}

		if golden {
			if xf >= xm {
				e = a - xf
			} else {
				e = b - xf
			}
			rat = goldenMean * e
		}

		x = xf + signOrOne(rat)*math.Max(math.Abs(rat), tol1)
		fu := f(x)

		if fu <= fx {
			if x >= xf {
				a = xf
			} else {
				b = xf
			}
			fulc, ffulc = nfc, fnfc
			nfc, fnfc = xf, fx
			xf, fx = x, fu
		} else {
			if x < xf {
				a = x
			} else {
				b = x
			}
			if fu <= fnfc || nfc == xf {
				fulc, ffulc = nfc, fnfc
				nfc, fnfc = x, fu
			} else if fu <= ffulc || fulc == xf || fulc == nfc {
				fulc, ffulc = x, fu
			}
		}

		xm = 0.5 * (a + b)
		tol1 = sqrtEps*math.Abs(xf) + xatol/3.0
		tol2 = 2.0 * tol1
	}

	return xf, fx, nil
}

func signOrOne(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
