package bdf

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/stiffode/internal/ode"
)

// MaxOrderLimit is the largest usable BDF order. Formulas above order six
// are not zero-stable.
const MaxOrderLimit = 6

// Options configures an Integrator at construction time. Zero fields are
// filled with defaults by New; tolerance slices are per component.
type Options struct {
	MaxOrder int // highest order the controller may reach, 1..6
	MaxSteps int // step attempts per Advance call before giving up
	MaxIters int // Newton iterations per step

	DtMin     float64 // smallest step size the rescale clamp allows
	EtaMin    float64 // smallest step-size scale factor
	EtaMax    float64 // largest step-size scale factor
	EtaThresh float64 // minimum gain before an order/step change is committed

	MaxJacAge    int // steps a Jacobian may age before a rebuild
	MaxMatrixAge int // steps an iteration-matrix factorization may age

	Rtol []float64 // per-component relative tolerances
	Atol []float64 // per-component absolute tolerances

	// Logger receives per-step diagnostics at Debug level. Diagnostic only,
	// never behavioral. Nil means discard.
	Logger logrus.FieldLogger
}

// DefaultOptions returns options for an n-dimensional system with uniform
// tolerances.
func DefaultOptions(n int, rtol, atol float64) Options {
	opts := Options{
		Rtol: make([]float64, n),
		Atol: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		opts.Rtol[i] = rtol
		opts.Atol[i] = atol
	}
	return opts
}

func (o *Options) sanitize(n int) error {
	if o.MaxOrder == 0 {
		o.MaxOrder = MaxOrderLimit
	}
	if o.MaxOrder < 1 || o.MaxOrder > MaxOrderLimit {
		return fmt.Errorf("%w: max order %d outside [1, %d]", ode.ErrInvalidOption, o.MaxOrder, MaxOrderLimit)
	}
	if o.MaxSteps == 0 {
		o.MaxSteps = 100000
	}
	if o.MaxIters == 0 {
		o.MaxIters = 10
	}
	if o.DtMin == 0 {
		o.DtMin = 1e-30
	}
	if o.EtaMin == 0 {
		o.EtaMin = 0.2
	}
	if o.EtaMax == 0 {
		o.EtaMax = 10.0
	}
	if o.EtaThresh == 0 {
		o.EtaThresh = 1.5
	}
	if o.MaxJacAge == 0 {
		o.MaxJacAge = 50
	}
	if o.MaxMatrixAge == 0 {
		o.MaxMatrixAge = 20
	}
	if len(o.Rtol) != n || len(o.Atol) != n {
		return fmt.Errorf("%w: tolerance slices must have length %d", ode.ErrDimensionMismatch, n)
	}
	for i := 0; i < n; i++ {
		if o.Atol[i] <= 0 || o.Rtol[i] < 0 {
			return fmt.Errorf("%w: atol must be positive and rtol non-negative (component %d)", ode.ErrInvalidOption, i)
		}
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
	return nil
}
