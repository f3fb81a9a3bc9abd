package bdf

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Iteration-matrix reuse windows. Factorization dominates the cost of a
// step, so the factored matrix is kept while the effective step stays
// within [refactorLo, refactorHi] of the step it was built for. The
// Jacobian itself survives refactorization unless the last step failed to
// converge with a step ratio outside [rebuildLo, rebuildHi] or it aged out.
const (
	refactorLo = 0.7
	refactorHi = 1.429
	rebuildLo  = 0.2
	rebuildHi  = 5.0
)

// solve runs the modified-Newton (chord) iteration for the implicit
// corrector equation y - dt_eff*f(y, t) = rhs, with rhs = z0[0] - z0[1]/l[1]
// and dt_eff = dt/l[1]. It reports whether the iteration converged; the
// accumulated correction is left in ts.e and the iterate in ts.y.
//
// A singular iteration matrix is treated exactly like non-convergence: the
// caller shrinks the step, forces a refactor and retries.
func (ts *Integrator) solve() bool {
	copy(ts.y, ts.z0[0])
	for m := range ts.e {
		ts.e[m] = 0
		ts.rhs[m] = ts.z0[0][m] - ts.z0[1][m]/ts.l[1]
	}

	dtAdj := ts.dt / ts.l[1]
	tNew := ts.t + ts.dt

	dtRat := math.Inf(1)
	if ts.dtNwt > 0 {
		dtRat = dtAdj / ts.dtNwt
	}

	// The pending-refactor flag is set on a convergence failure and
	// consumed here; acceptance of a step never carries it forward.
	refactor := ts.refactor
	if ts.pAge > ts.opts.MaxMatrixAge {
		refactor = true
	}
	if dtRat < refactorLo || dtRat > refactorHi {
		refactor = true
	}

	if refactor {
		rebuild := ts.jAge > ts.opts.MaxJacAge
		if ts.refactor && (dtRat < rebuildLo || dtRat > rebuildHi) {
			rebuild = true
		}
		if rebuild {
			ts.jac.Jacobian(ts.y, tNew, ts.jmat)
			ts.nje++
			ts.jAge = 0
		}
		// P = I - dt_eff J
		ts.pmat.Scale(-dtAdj, ts.jmat)
		for i := 0; i < ts.neq; i++ {
			ts.pmat.Set(i, i, ts.pmat.At(i, i)+1)
		}
		ts.lu.Factorize(ts.pmat)
		ts.luOK = true
		ts.nlu++
		ts.dtNwt = dtAdj
		ts.pAge = 0
		ts.refactor = false
	}
	if !ts.luOK {
		return false
	}

	// Damping blends the step the matrix was built for with the current one.
	c := 2 * ts.dtNwt / (dtAdj + ts.dtNwt)

	bv := mat.NewVecDense(ts.neq, ts.b)
	dv := mat.NewVecDense(ts.neq, ts.d)

	for iter := 0; iter < ts.opts.MaxIters; iter++ {
		yd := ts.sys.Derivative(ts.y, tNew)
		ts.nfe++
		for m := range ts.b {
			ts.b[m] = c * (ts.rhs[m] - ts.y[m] + dtAdj*yd[m])
		}
		if err := ts.lu.SolveVecTo(dv, false, bv); err != nil {
			if _, approximate := err.(mat.Condition); !approximate {
				return false
			}
		}
		ts.nit++
		floats.Add(ts.e, ts.d)
		floats.AddTo(ts.y, ts.z0[0], ts.e)
		if ts.d.Wrms(ts.ewt) < 1 {
			return true
		}
	}
	return false
}
