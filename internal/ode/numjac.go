package ode

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// NumJac wraps a System with a forward-difference Jacobian approximation.
// It is an explicit substitute for an analytic Jacobian: the stepper never
// falls back to it on its own, the caller opts in by wrapping.
type NumJac struct {
	System
	Eps float64 // relative perturbation, defaults to sqrt(machine epsilon)
}

func (nj *NumJac) eps() float64 {
	if nj.Eps > 0 {
		return nj.Eps
	}
	return math.Sqrt(2.2e-16)
}

func (nj *NumJac) Jacobian(y State, t float64, dst *mat.Dense) {
	n := nj.Dim()
	f0 := nj.Derivative(y, t)
	yp := y.Clone()
	for j := 0; j < n; j++ {
		dy := nj.eps() * math.Max(math.Abs(y[j]), 1.0)
		yp[j] = y[j] + dy
		f1 := nj.Derivative(yp, t)
		yp[j] = y[j]
		for i := 0; i < n; i++ {
			dst.Set(i, j, (f1[i]-f0[i])/dy)
		}
	}
}
