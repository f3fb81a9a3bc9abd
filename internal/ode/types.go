package ode

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Wrms is the weighted root-mean-square norm: each component is scaled by
// its error weight before averaging. The result is unit-less; a value below
// one means "within tolerance" throughout the solver.
func (s State) Wrms(w State) float64 {
	sum := 0.0
	for i, v := range s {
		sv := v * w[i]
		sum += sv * sv
	}
	return math.Sqrt(sum / float64(len(s)))
}

// System is a first-order ODE system dY/dt = f(Y, t). Derivative must be
// cheap to call repeatedly; the stepper invokes it once per Newton iteration.
type System interface {
	Dim() int
	Derivative(y State, t float64) State
}

// Jacobian supplies the analytic Jacobian df/dY. The stepper has no built-in
// finite-difference fallback; systems without an analytic form should be
// wrapped in [NumJac] explicitly by the caller.
type Jacobian interface {
	Jacobian(y State, t float64, dst *mat.Dense)
}

// Status is the terminal outcome of an Advance call.
type Status int

const (
	Success Status = iota
	SolverFailure
	MaxStepsExceeded
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case SolverFailure:
		return "solver failure"
	case MaxStepsExceeded:
		return "max steps exceeded"
	}
	return "unknown"
}
