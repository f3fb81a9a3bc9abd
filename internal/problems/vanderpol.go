package problems

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffode/internal/ode"
)

// VanDerPol is the Van der Pol oscillator in relaxation form. Large mu
// makes the limit cycle stiff along the slow branches.
// State: [x, v] with v = dx/dt.
type VanDerPol struct {
	Mu float64
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{Mu: 1000.0}
}

func (v *VanDerPol) Dim() int { return 2 }

func (v *VanDerPol) Derivative(y ode.State, _ float64) ode.State {
	x, vel := y[0], y[1]
	return ode.State{
		vel,
		v.Mu*(1-x*x)*vel - x,
	}
}

func (v *VanDerPol) Jacobian(y ode.State, _ float64, dst *mat.Dense) {
	x, vel := y[0], y[1]
	dst.Set(0, 0, 0)
	dst.Set(0, 1, 1)
	dst.Set(1, 0, -2*v.Mu*x*vel-1)
	dst.Set(1, 1, v.Mu*(1-x*x))
}

func (v *VanDerPol) DefaultState() ode.State {
	return ode.State{2.0, 0.0}
}
