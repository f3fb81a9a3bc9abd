package bdf

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// updateCoeffs recomputes the corrector coefficients l, the local-error
// coefficients tq and the error weights ewt for the step about to be taken.
// Pure in h, k and the current solution.
//
// The recursions are the standard variable-step BDF ones: l accumulates the
// products over xi_j = (h[0]+...+h[j-1])/h[0], alpha0 = -sum_{j=2..k} 1/j,
// and alphahat0 is its variable-step analogue. See Jackson & Sacks-Davis
// (1980) and the VODE papers.
func (ts *Integrator) updateCoeffs() {
	k := ts.k

	for i := range ts.l {
		ts.l[i] = 0
	}
	ts.l[0], ts.l[1] = 1, 1

	xiInv, xistarInv := 1.0, 1.0
	alpha0, alphahat0 := -1.0, -1.0
	hsum := ts.h[0]

	if k > 1 {
		for j := 2; j < k; j++ {
			hsum += ts.h[j-1]
			xiInv = ts.h[0] / hsum
			alpha0 -= 1 / float64(j)
			for i := j; i >= 1; i-- {
				ts.l[i] += ts.l[i-1] * xiInv
			}
		}
		alpha0 -= 1 / float64(k)
		xistarInv = -ts.l[1] - alpha0
		hsum += ts.h[k-1]
		xiInv = ts.h[0] / hsum
		alphahat0 = -ts.l[1] - xiInv
		for i := k; i >= 1; i-- {
			ts.l[i] += ts.l[i-1] * xistarInv
		}
	}

	a1 := 1 - alphahat0 + alpha0
	a2 := 1 + float64(k)*a1
	ts.tq[1] = math.Abs(a1 / (alpha0 * a2))
	ts.tq[3] = math.Abs(a2 * xistarInv / (ts.l[k] * xiInv))
	if k > 1 {
		a3 := alpha0 + 1/float64(k)
		a4 := alphahat0 + xiInv
		ts.tq[0] = math.Abs(xistarInv / ts.l[k] * (1 - a4 + a3) / a3)
	} else {
		ts.tq[0] = 1
	}
	hsum += ts.h[k]
	xiInv = ts.h[0] / hsum
	a5 := alpha0 - 1/float64(k+1)
	a6 := alphahat0 - xiInv
	ts.tq[2] = math.Abs((1 - a6 + a5) / a2 / (xiInv * float64(k+2) * a5))

	for m, ym := range ts.z[0] {
		ts.ewt[m] = 1 / (ts.opts.Rtol[m]*math.Abs(ym) + ts.opts.Atol[m])
	}
}

// predict applies the binomial matrix to the history: z0[i] = sum over j>=i
// of C(j,i) z[j]. The multistep predictor in Nordsieck form; valid at any
// order with the same fixed matrix.
func (ts *Integrator) predict() {
	for i := 0; i <= ts.k; i++ {
		for m := range ts.z0[i] {
			ts.z0[i][m] = 0
		}
		for j := i; j <= ts.k; j++ {
			floats.AddScaled(ts.z0[i], ts.pascal[i][j], ts.z[j])
		}
	}
}
