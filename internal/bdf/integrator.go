// Package bdf implements a variable-order, variable-step backward
// differentiation formula (BDF) integrator for stiff ODE systems, in the
// style of the VODE family: Nordsieck history, adaptive order 1..6,
// modified-Newton corrector with cached Jacobian and iteration-matrix
// reuse, and embedded local-error control.
package bdf

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffode/internal/ode"
)

// Integrator owns all per-problem state. One instance integrates one
// system; instances are independent and may be advanced in parallel with
// one exclusive owner each.
type Integrator struct {
	sys  ode.System
	jac  ode.Jacobian
	opts Options
	log  logrus.FieldLogger

	neq int // system dimension

	k     int     // current order, 1..opts.MaxOrder
	t     float64 // time of the last accepted solution
	t1    float64 // target time of the current Advance call
	dt    float64 // current step size; invariant h[0] == dt
	nstep int     // accepted steps since reset

	// Nordsieck history: column i approximates dt^i y^(i) / i!.
	// Column 0 is the solution. Columns above k are zero.
	z  []ode.State // accepted history
	z0 []ode.State // predicted history for the step in flight

	h []float64 // recent step sizes, most recent first
	l []float64 // corrector update coefficients, recomputed every step

	// Local-error coefficients for orders k-1, k, k+1 in slots 0..2.
	// Slot 3 is the auxiliary coefficient cached between steps for the
	// order-raise test.
	tq      [4]float64
	tq2save float64

	y, rhs, e, e1, ewt, b, d ode.State

	jmat, pmat *mat.Dense
	lu         mat.LU
	luOK       bool
	dtNwt      float64 // effective step the iteration matrix was built for
	jAge       int     // steps since the Jacobian was rebuilt
	pAge       int     // steps since the iteration matrix was refactored
	kAge       int     // steps since the order last changed
	refactor   bool    // pending forced refactor, set on convergence failure

	pascal [][]float64

	lastErr float64 // weighted local-error estimate of the last solve

	nfe, nje, nlu, nit int
	nse, ncse, nrej    int
	maxOrderUsed       int

	observer func(StepInfo)
}

// StepInfo is the per-step telemetry handed to an observer after each
// accepted step.
type StepInfo struct {
	Step  int
	T     float64
	Dt    float64
	Order int
	Error float64 // weighted local-error estimate, accepted when <= 1
}

// Stats is a snapshot of the monotonic counters.
type Stats struct {
	Steps          int     `json:"steps"`
	Evals          int     `json:"evals"`
	JacEvals       int     `json:"jac_evals"`
	Factorizations int     `json:"factorizations"`
	NewtonIters    int     `json:"newton_iters"`
	SolverFailures int     `json:"solver_failures"`
	Rejected       int     `json:"rejected"`
	Order          int     `json:"order"`
	MaxOrderUsed   int     `json:"max_order_used"`
	Time           float64 `json:"time"`
	Dt             float64 `json:"dt"`
}

// New builds an integrator for sys. The system must provide an analytic
// Jacobian (or be wrapped in ode.NumJac by the caller); there is no
// built-in finite-difference fallback.
func New(sys ode.System, opts Options) (*Integrator, error) {
	n := sys.Dim()
	if err := opts.sanitize(n); err != nil {
		return nil, err
	}
	jac, ok := sys.(ode.Jacobian)
	if !ok {
		return nil, ode.ErrNoJacobian
	}

	ts := &Integrator{
		sys:  sys,
		jac:  jac,
		opts: opts,
		log:  opts.Logger,
		neq:  n,
	}

	ncol := opts.MaxOrder + 1
	ts.z = make([]ode.State, ncol)
	ts.z0 = make([]ode.State, ncol)
	for i := 0; i < ncol; i++ {
		ts.z[i] = make(ode.State, n)
		ts.z0[i] = make(ode.State, n)
	}
	ts.h = make([]float64, ncol)
	ts.l = make([]float64, ncol)

	ts.y = make(ode.State, n)
	ts.rhs = make(ode.State, n)
	ts.e = make(ode.State, n)
	ts.e1 = make(ode.State, n)
	ts.ewt = make(ode.State, n)
	ts.b = make(ode.State, n)
	ts.d = make(ode.State, n)

	ts.jmat = mat.NewDense(n, n, nil)
	ts.pmat = mat.NewDense(n, n, nil)

	ts.pascal = pascalMatrix(ncol)
	ts.k = 1
	ts.maxOrderUsed = 1

	// a fresh integrator is maximally stale even if the first Advance
	// asks to reuse
	ts.jAge = opts.MaxJacAge + 1
	ts.pAge = opts.MaxMatrixAge + 1
	ts.refactor = true
	return ts, nil
}

// SetObserver installs a per-step telemetry callback. Pass nil to remove.
func (ts *Integrator) SetObserver(fn func(StepInfo)) { ts.observer = fn }

// Order reports the order currently in use.
func (ts *Integrator) Order() int { return ts.k }

// Time reports the time of the last accepted solution.
func (ts *Integrator) Time() float64 { return ts.t }

// Dt reports the current step size.
func (ts *Integrator) Dt() float64 { return ts.dt }

// Solution returns a copy of the current solution estimate.
func (ts *Integrator) Solution() ode.State { return ts.z[0].Clone() }

func (ts *Integrator) Stats() Stats {
	return Stats{
		Steps:          ts.nstep,
		Evals:          ts.nfe,
		JacEvals:       ts.nje,
		Factorizations: ts.nlu,
		NewtonIters:    ts.nit,
		SolverFailures: ts.nse,
		Rejected:       ts.nrej,
		Order:          ts.k,
		MaxOrderUsed:   ts.maxOrderUsed,
		Time:           ts.t,
		Dt:             ts.dt,
	}
}

// Reset reinitializes the integrator from a fresh initial condition: order
// one, history seeded from y0 and f(y0, t0), all counters zeroed. With
// reuse set, the Jacobian, iteration matrix and their ages carry over from
// the previous problem state; otherwise both are marked maximally stale.
func (ts *Integrator) Reset(y0 ode.State, t0, dt0 float64, reuse bool) {
	ts.k = 1
	ts.t = t0
	ts.dt = dt0

	for i := range ts.h {
		ts.h[i] = 0
	}
	ts.h[0] = dt0

	for i := range ts.z {
		for m := range ts.z[i] {
			ts.z[i][m] = 0
			ts.z0[i][m] = 0
		}
	}
	copy(ts.z[0], y0)
	yd := ts.sys.Derivative(y0, t0)
	for m := range ts.z[1] {
		ts.z[1][m] = dt0 * yd[m]
	}

	for m := range ts.e {
		ts.e[m] = 0
		ts.e1[m] = 0
	}
	ts.kAge = 0
	ts.tq2save = 0
	ts.lastErr = 0

	if !reuse {
		ts.jAge = ts.opts.MaxJacAge + 1
		ts.pAge = ts.opts.MaxMatrixAge + 1
		ts.dtNwt = 0
		ts.luOK = false
		ts.refactor = true
	}

	ts.nstep = 0
	ts.nfe = 0
	ts.nje = 0
	ts.nlu = 0
	ts.nit = 0
	ts.nse = 0
	ts.ncse = 0
	ts.nrej = 0
	ts.maxOrderUsed = 1
}

// Advance integrates from the current state (or from y0/t0/dt0 when reset
// is set) until the target time t1. With reset clear, y0, t0 and dt0 are
// ignored and integration continues from where the previous call stopped.
// The returned state is the solution at the final time; on failure the
// error unwraps to ode.ErrSolverFailure or ode.ErrMaxSteps.
func (ts *Integrator) Advance(y0 ode.State, t0, t1, dt0 float64, reset, reuse bool) (ode.State, error) {
	if reset {
		if len(y0) != ts.neq {
			return nil, ode.ErrDimensionMismatch
		}
		ts.Reset(y0, t0, dt0, reuse)
	}
	ts.t1 = t1
	if ts.done() {
		return ts.z[0].Clone(), nil
	}
	// do not overshoot the target on the first step
	if ts.t+ts.dt > ts.t1 {
		ts.rescale((ts.t1-ts.t)/ts.dt, true)
	}

	for attempt := 0; ; attempt++ {
		if attempt >= ts.opts.MaxSteps {
			return nil, ts.fail(ode.MaxStepsExceeded, ode.ErrMaxSteps)
		}

		ts.updateCoeffs()
		ts.predict()
		converged := ts.solve()
		retry, err := ts.check(converged)
		if err != nil {
			return nil, err
		}
		if retry {
			continue
		}
		ts.correct()

		if ts.observer != nil {
			ts.observer(StepInfo{Step: ts.nstep, T: ts.t, Dt: ts.dt, Order: ts.k, Error: ts.lastErr})
		}
		ts.log.WithFields(logrus.Fields{
			"n": ts.nstep, "t": ts.t, "dt": ts.dt, "k": ts.k,
			"nfe": ts.nfe, "nje": ts.nje, "nlu": ts.nlu, "nit": ts.nit, "nse": ts.nse,
		}).Debug("step accepted")

		if ts.done() {
			break
		}
		ts.adjust()
	}
	return ts.z[0].Clone(), nil
}

// done reports whether the target time has been reached. The slack absorbs
// roundoff from the forced exact landing.
func (ts *Integrator) done() bool {
	return ts.t >= ts.t1-1e-10*(math.Abs(ts.t1)+math.Abs(ts.dt))
}

func (ts *Integrator) fail(st ode.Status, err error) error {
	ts.log.WithFields(logrus.Fields{"n": ts.nstep, "t": ts.t, "dt": ts.dt}).Warn(st.String())
	return &ode.StepError{Status: st, Step: ts.nstep, Time: ts.t, Wrapped: err}
}
