// Package runner orchestrates integrations: sampled single runs with
// step-level telemetry, and parallel ensembles of independent integrator
// instances.
package runner

import (
	"context"
	"fmt"

	"github.com/san-kum/stiffode/internal/bdf"
	"github.com/san-kum/stiffode/internal/ode"
)

// Result collects the sampled trajectory and the step-level telemetry of
// one integration.
type Result struct {
	Times  []float64
	States []ode.State

	// per accepted step, in step order
	StepTimes []float64
	DtHist    []float64
	OrderHist []int
	ErrHist   []float64

	Stats bdf.Stats
}

// Runner drives one integrator over an interval, sampling the solution at
// evenly spaced output times. Cancellation is honored between segments
// only; a step in flight always runs to completion.
type Runner struct {
	sys ode.System
	ts  *bdf.Integrator
}

func New(sys ode.System, opts bdf.Options) (*Runner, error) {
	ts, err := bdf.New(sys, opts)
	if err != nil {
		return nil, err
	}
	return &Runner{sys: sys, ts: ts}, nil
}

// Integrator exposes the underlying stepper, for callers that want to
// continue the integration or inspect its state.
func (r *Runner) Integrator() *bdf.Integrator { return r.ts }

// Run integrates y0 from t0 to t1 with samples output intervals. The first
// segment resets the integrator; later segments continue the same history,
// so order and step size survive across sample boundaries.
func (r *Runner) Run(ctx context.Context, y0 ode.State, t0, t1, dt0 float64, samples int) (*Result, error) {
	if samples < 1 {
		samples = 1
	}
	if t1 <= t0 {
		return nil, fmt.Errorf("runner: empty interval [%g, %g]", t0, t1)
	}

	res := &Result{
		Times:  make([]float64, 0, samples+1),
		States: make([]ode.State, 0, samples+1),
	}
	res.Times = append(res.Times, t0)
	res.States = append(res.States, y0.Clone())

	r.ts.SetObserver(func(info bdf.StepInfo) {
		res.StepTimes = append(res.StepTimes, info.T)
		res.DtHist = append(res.DtHist, info.Dt)
		res.OrderHist = append(res.OrderHist, info.Order)
		res.ErrHist = append(res.ErrHist, info.Error)
	})
	defer r.ts.SetObserver(nil)

	dt := (t1 - t0) / float64(samples)
	for i := 1; i <= samples; i++ {
		select {
		case <-ctx.Done():
			res.Stats = r.ts.Stats()
			return res, ctx.Err()
		default:
		}

		target := t0 + float64(i)*dt
		if i == samples {
			target = t1
		}
		y, err := r.ts.Advance(y0, t0, target, dt0, i == 1, false)
		if err != nil {
			res.Stats = r.ts.Stats()
			return res, err
		}
		res.Times = append(res.Times, target)
		res.States = append(res.States, y)
	}

	res.Stats = r.ts.Stats()
	return res, nil
}
