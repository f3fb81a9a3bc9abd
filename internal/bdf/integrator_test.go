package bdf

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffode/internal/ode"
	"github.com/san-kum/stiffode/internal/problems"
)

// linearSystem is the scalar test problem y' = lambda*y with exact
// solution y0*exp(lambda*t).
type linearSystem struct {
	lambda float64
}

func (s *linearSystem) Dim() int { return 1 }

func (s *linearSystem) Derivative(y ode.State, _ float64) ode.State {
	return ode.State{s.lambda * y[0]}
}

func (s *linearSystem) Jacobian(_ ode.State, _ float64, dst *mat.Dense) {
	dst.Set(0, 0, s.lambda)
}

func linearY0() ode.State { return ode.State{1.0} }

// noJacSystem implements ode.System but not ode.Jacobian.
type noJacSystem struct{}

func (s *noJacSystem) Dim() int { return 1 }
func (s *noJacSystem) Derivative(y ode.State, _ float64) ode.State {
	return ode.State{-y[0]}
}

// explodingSystem is violently unstable and reports a uselessly wrong
// (zero) Jacobian, so the Newton iteration can never converge.
type explodingSystem struct{}

func (s *explodingSystem) Dim() int { return 1 }
func (s *explodingSystem) Derivative(y ode.State, _ float64) ode.State {
	return ode.State{1e8 * y[0]}
}
func (s *explodingSystem) Jacobian(_ ode.State, _ float64, dst *mat.Dense) {
	dst.Zero()
}

func TestNew_RequiresJacobian(t *testing.T) {
	_, err := New(&noJacSystem{}, DefaultOptions(1, 1e-6, 1e-6))
	if !errors.Is(err, ode.ErrNoJacobian) {
		t.Fatalf("New without Jacobian: got %v, want ErrNoJacobian", err)
	}

	wrapped := &ode.NumJac{System: &noJacSystem{}}
	if _, err := New(wrapped, DefaultOptions(1, 1e-6, 1e-6)); err != nil {
		t.Fatalf("New with NumJac wrapper: %v", err)
	}
}

func TestNew_RejectsBadOptions(t *testing.T) {
	opts := DefaultOptions(1, 1e-6, 1e-6)
	opts.MaxOrder = 7
	if _, err := New(&linearSystem{lambda: -1}, opts); !errors.Is(err, ode.ErrInvalidOption) {
		t.Errorf("MaxOrder=7: got %v, want ErrInvalidOption", err)
	}

	opts = DefaultOptions(1, 1e-6, 1e-6)
	opts.Atol[0] = 0
	if _, err := New(&linearSystem{lambda: -1}, opts); !errors.Is(err, ode.ErrInvalidOption) {
		t.Errorf("Atol=0: got %v, want ErrInvalidOption", err)
	}

	if _, err := New(&linearSystem{lambda: -1}, DefaultOptions(3, 1e-6, 1e-6)); !errors.Is(err, ode.ErrDimensionMismatch) {
		t.Errorf("wrong tolerance length: got %v, want ErrDimensionMismatch", err)
	}
}

func TestAdvance_DimensionMismatch(t *testing.T) {
	ts, err := New(&linearSystem{lambda: -1}, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Advance(ode.State{1, 2}, 0, 1, 0.1, true, false); !errors.Is(err, ode.ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestAdvance_EmptyInterval(t *testing.T) {
	ts, err := New(&linearSystem{lambda: -1}, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}
	y, err := ts.Advance(ode.State{3.0}, 2.0, 2.0, 0.1, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if y[0] != 3.0 {
		t.Errorf("zero-length advance changed the solution: %g", y[0])
	}
	if ts.Stats().Steps != 0 {
		t.Errorf("zero-length advance took %d steps", ts.Stats().Steps)
	}
}

// Fixed-step backward Euler (order cap 1, step-change factors pinned to 1)
// must show first-order convergence: halving the step roughly halves the
// global error.
func TestAdvance_BackwardEulerConvergence(t *testing.T) {
	run := func(dt float64) float64 {
		opts := DefaultOptions(1, 0, 1.0)
		opts.MaxOrder = 1
		opts.EtaMin = 1
		opts.EtaMax = 1
		ts, err := New(&linearSystem{lambda: -1}, opts)
		if err != nil {
			t.Fatal(err)
		}
		y, err := ts.Advance(linearY0(), 0, 1.0, dt, true, false)
		if err != nil {
			t.Fatal(err)
		}
		return math.Abs(y[0] - math.Exp(-1))
	}

	coarse := run(0.05)
	fine := run(0.025)
	ratio := coarse / fine
	t.Logf("errors: dt=0.05 -> %.3e, dt=0.025 -> %.3e, ratio %.3f", coarse, fine, ratio)

	if coarse <= fine {
		t.Errorf("halving the step did not reduce the error: %e vs %e", coarse, fine)
	}
	if ratio < 1.8 || ratio > 2.2 {
		t.Errorf("convergence ratio %.3f outside first-order range [1.8, 2.2]", ratio)
	}
}

// On y' = -1000y the accepted step sizes must far exceed the explicit
// stability limit 2/1000; that is the whole point of an implicit method.
func TestAdvance_StiffDecayStability(t *testing.T) {
	ts, err := New(problems.NewDecay(-1000), DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}

	maxDt := 0.0
	ts.SetObserver(func(info StepInfo) {
		if info.Dt > maxDt {
			maxDt = info.Dt
		}
	})

	y, err := ts.Advance(ode.State{1.0}, 0, 1.0, 1e-6, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(y[0]) > 1e-3 {
		t.Errorf("solution at t=1 is %g, want ~0", y[0])
	}
	if maxDt < 0.05 {
		t.Errorf("largest accepted step %g, want well beyond the explicit limit 0.002", maxDt)
	}
}

// Prothero-Robinson with rate 1000 has exact solution cos(t) from y(0)=1,
// independent of stiffness; the tight benchmark for stiff accuracy.
func TestAdvance_ProtheroRobinsonAccuracy(t *testing.T) {
	sys := problems.NewProtheroRobinson()
	ts, err := New(sys, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}

	y, err := ts.Advance(sys.DefaultState(), 0, 1.0, 1e-4, true, false)
	if err != nil {
		t.Fatal(err)
	}

	got := math.Abs(y[0] - math.Cos(1.0))
	t.Logf("error at t=1: %.3e over %d steps", got, ts.Stats().Steps)
	if got > 1e-4 {
		t.Errorf("|y(1) - cos(1)| = %e, want < 1e-4", got)
	}
	if ts.Stats().MaxOrderUsed < 2 {
		t.Errorf("order never left 1 (max used %d)", ts.Stats().MaxOrderUsed)
	}
}

func TestAdvance_ForcedRelaxationAccuracy(t *testing.T) {
	sys := problems.NewForcedRelaxation()
	ts, err := New(sys, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}

	y, err := ts.Advance(sys.DefaultState(), 0, 1.0, 1e-6, true, false)
	if err != nil {
		t.Fatal(err)
	}

	got := math.Abs(y[0] - sys.Exact(1.0))
	if got > 1e-4 {
		t.Errorf("|y(1) - exact| = %e, want < 1e-4", got)
	}
	if ts.Stats().MaxOrderUsed < 2 {
		t.Errorf("order never left 1 (max used %d)", ts.Stats().MaxOrderUsed)
	}
}

func TestAdvance_RobertsonAccuracy(t *testing.T) {
	sys := problems.NewRobertson()
	opts := DefaultOptions(3, 1e-7, 0)
	opts.Atol = []float64{1e-9, 1e-13, 1e-9}
	ts, err := New(sys, opts)
	if err != nil {
		t.Fatal(err)
	}

	y, err := ts.Advance(sys.DefaultState(), 0, 0.4, 1e-8, true, false)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("y(0.4) = [%.7e, %.7e, %.7e]", y[0], y[1], y[2])

	// reference values for the classic kinetics constants at t = 0.4
	if math.Abs(y[0]-9.851641e-01) > 1e-4 {
		t.Errorf("y1 = %e, want ~9.851641e-01", y[0])
	}
	if math.Abs(y[1]-3.386242e-05) > 1e-6 {
		t.Errorf("y2 = %e, want ~3.386242e-05", y[1])
	}
	if math.Abs(y[2]-1.480205e-02) > 1e-4 {
		t.Errorf("y3 = %e, want ~1.480205e-02", y[2])
	}

	// mass conservation: the sum is a linear invariant of the kinetics
	sum := y[0] + y[1] + y[2]
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("mass sum = %.10f, want 1", sum)
	}
}

// An unstable system reported with a uselessly wrong Jacobian must fail
// cleanly after the consecutive-failure budget: seven retried convergence
// failures and a fatal eighth.
func TestAdvance_SolverFailureAfterBudget(t *testing.T) {
	ts, err := New(&explodingSystem{}, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}

	_, err = ts.Advance(ode.State{1.0}, 0, 10.0, 1.0, true, false)
	if !errors.Is(err, ode.ErrSolverFailure) {
		t.Fatalf("got %v, want ErrSolverFailure", err)
	}

	var stepErr *ode.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error %v is not a StepError", err)
	}
	if stepErr.Status != ode.SolverFailure {
		t.Errorf("status = %v, want SolverFailure", stepErr.Status)
	}
	if got := ts.Stats().SolverFailures; got != 8 {
		t.Errorf("solver failures = %d, want 8", got)
	}
	if ts.Stats().Steps != 0 {
		t.Errorf("failed run accepted %d steps", ts.Stats().Steps)
	}
}

func TestAdvance_MaxStepsExceeded(t *testing.T) {
	sys := problems.NewRobertson()
	opts := DefaultOptions(3, 1e-6, 1e-10)
	opts.MaxSteps = 5
	ts, err := New(sys, opts)
	if err != nil {
		t.Fatal(err)
	}

	_, err = ts.Advance(sys.DefaultState(), 0, 0.4, 1e-8, true, false)
	if !errors.Is(err, ode.ErrMaxSteps) {
		t.Fatalf("got %v, want ErrMaxSteps", err)
	}
	var stepErr *ode.StepError
	if !errors.As(err, &stepErr) || stepErr.Status != ode.MaxStepsExceeded {
		t.Errorf("error %v does not carry MaxStepsExceeded", err)
	}
}

// The final step is clipped so the integration lands on the target time
// exactly, not on the nearest step boundary past it.
func TestAdvance_LandsOnTarget(t *testing.T) {
	sys := problems.NewProtheroRobinson()
	ts, err := New(sys, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}

	const t1 = 0.77
	if _, err := ts.Advance(sys.DefaultState(), 0, t1, 1e-4, true, false); err != nil {
		t.Fatal(err)
	}
	if math.Abs(ts.Time()-t1) > 1e-9 {
		t.Errorf("final time %.15f, want %.15f", ts.Time(), t1)
	}
}

// A run split at an interior time must continue the same history and stay
// as accurate as an unbroken run.
func TestAdvance_Continuation(t *testing.T) {
	sys := problems.NewProtheroRobinson()
	ts, err := New(sys, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ts.Advance(sys.DefaultState(), 0, 0.4, 1e-4, true, false); err != nil {
		t.Fatal(err)
	}
	stepsFirst := ts.Stats().Steps

	y, err := ts.Advance(nil, 0, 1.0, 0, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Stats().Steps <= stepsFirst {
		t.Errorf("continuation took no steps (%d then %d)", stepsFirst, ts.Stats().Steps)
	}
	if got := math.Abs(y[0] - math.Cos(1.0)); got > 1e-4 {
		t.Errorf("|y(1) - cos(1)| = %e after continuation, want < 1e-4", got)
	}
}

// With reuse set, Reset keeps the cached Jacobian. For a linear system the
// Jacobian is constant, so a second run over the same problem needs no
// Jacobian evaluation at all when aging is effectively disabled.
func TestAdvance_ReuseKeepsJacobian(t *testing.T) {
	opts := DefaultOptions(1, 1e-6, 1e-6)
	opts.MaxJacAge = 1 << 20
	ts, err := New(&linearSystem{lambda: -5}, opts)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ts.Advance(linearY0(), 0, 1.0, 1e-4, true, false); err != nil {
		t.Fatal(err)
	}
	if ts.Stats().JacEvals != 1 {
		t.Fatalf("first run jacobian evals = %d, want 1", ts.Stats().JacEvals)
	}

	y, err := ts.Advance(linearY0(), 0, 1.0, 1e-4, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Stats().JacEvals != 0 {
		t.Errorf("reuse run jacobian evals = %d, want 0", ts.Stats().JacEvals)
	}
	if got := math.Abs(y[0] - math.Exp(-5)); got > 1e-3 {
		t.Errorf("reuse run error %e", got)
	}
}

func TestObserver_SeesMonotoneSteps(t *testing.T) {
	sys := problems.NewProtheroRobinson()
	ts, err := New(sys, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		t.Fatal(err)
	}

	var infos []StepInfo
	ts.SetObserver(func(info StepInfo) { infos = append(infos, info) })

	if _, err := ts.Advance(sys.DefaultState(), 0, 1.0, 1e-4, true, false); err != nil {
		t.Fatal(err)
	}
	if len(infos) != ts.Stats().Steps {
		t.Fatalf("observer saw %d steps, stats report %d", len(infos), ts.Stats().Steps)
	}
	for i, info := range infos {
		if info.Step != i+1 {
			t.Errorf("step %d numbered %d", i, info.Step)
		}
		if i > 0 && info.T <= infos[i-1].T {
			t.Errorf("time not monotone at step %d: %g after %g", i, info.T, infos[i-1].T)
		}
		if info.Error > 1 {
			t.Errorf("accepted step %d has error estimate %g > 1", i, info.Error)
		}
		if info.Order < 1 || info.Order > MaxOrderLimit {
			t.Errorf("step %d ran at order %d", i, info.Order)
		}
	}
}

func TestAdvance_VanDerPolCompletes(t *testing.T) {
	if testing.Short() {
		t.Skip("long stiff integration")
	}
	sys := problems.NewVanDerPol()
	opts := DefaultOptions(2, 1e-6, 1e-8)
	opts.MaxSteps = 2000000
	ts, err := New(sys, opts)
	if err != nil {
		t.Fatal(err)
	}

	y, err := ts.Advance(sys.DefaultState(), 0, 100.0, 1e-6, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if !y.IsValid() {
		t.Fatalf("van der Pol produced invalid state %v", y)
	}
	// the relaxation oscillation keeps the amplitude near 2
	if math.Abs(y[0]) > 2.5 {
		t.Errorf("y1(100) = %g, amplitude should stay near 2", y[0])
	}
}
