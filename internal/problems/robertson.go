package problems

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffode/internal/ode"
)

// Robertson is the three-species autocatalytic reaction kinetics problem
// (Robertson 1966), the standard chemistry benchmark for stiff solvers.
// Rate constants span nine orders of magnitude; the species sum is
// conserved.
type Robertson struct {
	K1, K2, K3 float64
}

func NewRobertson() *Robertson {
	return &Robertson{K1: 0.04, K2: 3e7, K3: 1e4}
}

func (r *Robertson) Dim() int { return 3 }

func (r *Robertson) Derivative(y ode.State, _ float64) ode.State {
	return ode.State{
		-r.K1*y[0] + r.K3*y[1]*y[2],
		r.K1*y[0] - r.K3*y[1]*y[2] - r.K2*y[1]*y[1],
		r.K2 * y[1] * y[1],
	}
}

func (r *Robertson) Jacobian(y ode.State, _ float64, dst *mat.Dense) {
	dst.Set(0, 0, -r.K1)
	dst.Set(0, 1, r.K3*y[2])
	dst.Set(0, 2, r.K3*y[1])
	dst.Set(1, 0, r.K1)
	dst.Set(1, 1, -r.K3*y[2]-2*r.K2*y[1])
	dst.Set(1, 2, -r.K3*y[1])
	dst.Set(2, 0, 0)
	dst.Set(2, 1, 2*r.K2*y[1])
	dst.Set(2, 2, 0)
}

func (r *Robertson) DefaultState() ode.State {
	return ode.State{1.0, 0.0, 0.0}
}
