package runner

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/stiffode/internal/bdf"
	"github.com/san-kum/stiffode/internal/ode"
)

// Ensemble integrates many independent copies of the same system in
// parallel, one integrator instance per member — the per-cell pattern of a
// reacting-flow solver, where every cell owns its own kinetics state.
// Members share nothing; parallelism is across instances only.
type Ensemble struct {
	factory func() ode.System
	opts    bdf.Options
	Workers int // goroutine cap, defaults to GOMAXPROCS
}

func NewEnsemble(factory func() ode.System, opts bdf.Options) *Ensemble {
	return &Ensemble{factory: factory, opts: opts}
}

// Run advances every initial condition from t0 to t1 and returns the final
// states in input order. The first error cancels the remaining members.
func (e *Ensemble) Run(ctx context.Context, y0s []ode.State, t0, t1, dt0 float64) ([]ode.State, error) {
	finals := make([]ode.State, len(y0s))

	g, ctx := errgroup.WithContext(ctx)
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for i := range y0s {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ts, err := bdf.New(e.factory(), e.opts)
			if err != nil {
				return err
			}
			y, err := ts.Advance(y0s[i], t0, t1, dt0, true, false)
			if err != nil {
				return err
			}
			finals[i] = y
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return finals, nil
}
