package problems

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffode/internal/ode"
)

// Decay is the scalar linear test system y' = lambda*y. With lambda large
// and negative it is the canonical stiff stability benchmark.
type Decay struct {
	Lambda float64
}

func NewDecay(lambda float64) *Decay {
	return &Decay{Lambda: lambda}
}

func (d *Decay) Dim() int { return 1 }

func (d *Decay) Derivative(y ode.State, _ float64) ode.State {
	return ode.State{d.Lambda * y[0]}
}

func (d *Decay) Jacobian(_ ode.State, _ float64, dst *mat.Dense) {
	dst.Set(0, 0, d.Lambda)
}

func (d *Decay) DefaultState() ode.State {
	return ode.State{1.0}
}
