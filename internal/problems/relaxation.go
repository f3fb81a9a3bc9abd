package problems

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffode/internal/ode"
)

// ForcedRelaxation is the stiff relaxation problem y' = -rate*(y - cos t):
// the solution is pulled onto the slow manifold near cos t on the fast
// 1/rate time scale.
// Exact solution (transient aside):
//
//	y = (rate^2 cos t + rate sin t) / (rate^2 + 1)
type ForcedRelaxation struct {
	Rate float64
}

func NewForcedRelaxation() *ForcedRelaxation {
	return &ForcedRelaxation{Rate: 1000.0}
}

func (f *ForcedRelaxation) Dim() int { return 1 }

func (f *ForcedRelaxation) Derivative(y ode.State, t float64) ode.State {
	return ode.State{-f.Rate * (y[0] - math.Cos(t))}
}

func (f *ForcedRelaxation) Jacobian(_ ode.State, _ float64, dst *mat.Dense) {
	dst.Set(0, 0, -f.Rate)
}

func (f *ForcedRelaxation) DefaultState() ode.State {
	return ode.State{2.0}
}

// Exact evaluates the steady forced response at t, ignoring the decayed
// transient.
func (f *ForcedRelaxation) Exact(t float64) float64 {
	a := f.Rate
	return (a*a*math.Cos(t) + a*math.Sin(t)) / (a*a + 1)
}

// ProtheroRobinson is the classic stiff accuracy benchmark
// y' = -rate*(y - cos t) - sin t, whose exact solution from y(0) = 1 is
// exactly cos t at any stiffness.
type ProtheroRobinson struct {
	Rate float64
}

func NewProtheroRobinson() *ProtheroRobinson {
	return &ProtheroRobinson{Rate: 1000.0}
}

func (p *ProtheroRobinson) Dim() int { return 1 }

func (p *ProtheroRobinson) Derivative(y ode.State, t float64) ode.State {
	return ode.State{-p.Rate*(y[0]-math.Cos(t)) - math.Sin(t)}
}

func (p *ProtheroRobinson) Jacobian(_ ode.State, _ float64, dst *mat.Dense) {
	dst.Set(0, 0, -p.Rate)
}

func (p *ProtheroRobinson) DefaultState() ode.State {
	return ode.State{1.0}
}
