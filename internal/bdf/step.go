package bdf

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/stiffode/internal/ode"
)

const (
	// etaBias and etaAddon shape the step-size selection
	// eta = 1 / ((bias*error)^(1/k) + addon), as in VODE.
	etaBias  = 6.0
	etaAddon = 1e-6

	// shrink factor after a Newton convergence failure
	failShrink = 0.25

	// consecutive Newton failures tolerated before giving up; the next
	// one is fatal
	maxConsecFailures = 7
)

// check inspects the outcome of a solve: on Newton failure it shrinks the
// step aggressively, forces a refactor and requests a retry (fatal after
// the failure budget is spent); on an oversized local error it shrinks the
// step and requests a retry. Neither path advances time or history.
func (ts *Integrator) check(converged bool) (retry bool, err error) {
	if !converged {
		ts.refactor = true
		ts.nse++
		ts.ncse++
		if ts.ncse > maxConsecFailures {
			return false, ts.fail(ode.SolverFailure, ode.ErrSolverFailure)
		}
		ts.log.WithFields(logrus.Fields{"t": ts.t, "dt": ts.dt, "consecutive": ts.ncse}).
			Warn("newton iteration failed to converge, retrying")
		ts.rescale(failShrink, false)
		return true, nil
	}
	ts.ncse = 0

	ts.lastErr = ts.tq[1] * ts.e.Wrms(ts.ewt)
	if ts.lastErr > 1 {
		ts.nrej++
		eta := 1 / (math.Pow(etaBias*ts.lastErr, 1/float64(ts.k)) + etaAddon)
		ts.rescale(eta, false)
		return true, nil
	}
	return false, nil
}

// correct folds the accepted Newton correction into the history,
// z[i] += l[i]*e, then advances time and the step-size history.
func (ts *Integrator) correct() {
	for i := 0; i <= ts.k; i++ {
		floats.AddScaledTo(ts.z[i], ts.z0[i], ts.l[i], ts.e)
	}
	for i := len(ts.h) - 1; i >= 1; i-- {
		ts.h[i] = ts.h[i-1]
	}
	ts.h[0] = ts.dt
	ts.t += ts.dt
	ts.nstep++
	ts.kAge++
	ts.jAge++
	ts.pAge++
}

// adjust picks the next order and step size after an accepted step. The
// candidate scale factors eta(k-1), eta(k), eta(k+1) are derived from the
// local-error estimates at each order; the lower/higher-order candidates
// are considered only once the current order has been held for k steps.
// A change is committed only when the best candidate beats EtaThresh.
// Finally the step is clipped so the target time is hit exactly.
func (ts *Integrator) adjust() {
	const keep, down, up = 1, 0, 2
	var eta [3]float64

	eta[keep] = 1 / (math.Pow(etaBias*ts.lastErr, 1/float64(ts.k)) + etaAddon)

	if ts.kAge > ts.k {
		if ts.k > 1 {
			errDown := ts.tq[0] * ts.z[ts.k].Wrms(ts.ewt)
			eta[down] = 1 / (math.Pow(etaBias*errDown, 1/float64(ts.k)) + etaAddon)
		}
		if ts.k < ts.opts.MaxOrder && ts.tq2save != 0 && ts.h[1] != 0 {
			// compare this step's correction against the previous one,
			// scaled by the ratio of consecutive error coefficients
			cq := ts.tq[3] / ts.tq2save * math.Pow(ts.h[0]/ts.h[1], float64(ts.k+1))
			for m := range ts.d {
				ts.d[m] = ts.e[m] - cq*ts.e1[m]
			}
			errUp := ts.tq[2] * ts.d.Wrms(ts.ewt)
			eta[up] = 1 / (math.Pow(etaBias*errUp, 1/float64(ts.k+2)) + etaAddon)
		}
		ts.kAge = 0
	}

	best := keep
	if eta[down] > eta[best] {
		best = down
	}
	if eta[up] > eta[best] {
		best = up
	}

	if eta[best] > ts.opts.EtaThresh {
		switch best {
		case down:
			ts.decreaseOrder()
		case up:
			ts.increaseOrder()
		}
		ts.rescale(eta[best], false)
	}

	if ts.t+ts.dt > ts.t1 {
		ts.rescale((ts.t1-ts.t)/ts.dt, true)
	}

	copy(ts.e1, ts.e)
	ts.tq2save = ts.tq[3]
}

// rescale changes the step size by eta and rescales the derivative history
// columns accordingly: z[i] *= eta^i for i = 1..k, column 0 untouched.
// Unless forced, eta is clamped to [max(EtaMin, DtMin/dt), EtaMax].
func (ts *Integrator) rescale(eta float64, force bool) {
	if !force {
		eta = math.Max(eta, math.Max(ts.opts.EtaMin, ts.opts.DtMin/ts.dt))
		eta = math.Min(eta, ts.opts.EtaMax)
	}
	ts.dt *= eta
	ts.h[0] = ts.dt
	scale := eta
	for i := 1; i <= ts.k; i++ {
		floats.Scale(scale, ts.z[i])
		scale *= eta
	}
}

// decreaseOrder eliminates the top history column: its contribution is
// subtracted from the lower columns using binomial-combination coefficients
// built from the xi products, then the column is zeroed. No-op at order 1.
func (ts *Integrator) decreaseOrder() {
	if ts.k <= 1 {
		return
	}
	k := ts.k
	if k > 2 {
		for i := range ts.l {
			ts.l[i] = 0
		}
		ts.l[2] = 1
		hsum := 0.0
		for j := 1; j <= k-2; j++ {
			hsum += ts.h[j-1]
			xi := hsum / ts.h[0]
			for i := j + 2; i >= 2; i-- {
				ts.l[i] = ts.l[i]*xi + ts.l[i-1]
			}
		}
		for j := 2; j < k; j++ {
			floats.AddScaled(ts.z[j], -ts.l[j], ts.z[k])
		}
	}
	for m := range ts.z[k] {
		ts.z[k][m] = 0
	}
	ts.k--
}

// increaseOrder injects the accumulated correction into a new top history
// column, spreading it over the existing columns with the same
// binomial-combination coefficients. No-op at the order cap.
func (ts *Integrator) increaseOrder() {
	if ts.k >= ts.opts.MaxOrder {
		return
	}
	k := ts.k
	for i := range ts.l {
		ts.l[i] = 0
	}
	ts.l[2] = 1
	alpha0, alpha1 := -1.0, 1.0
	prod, xiold := 1.0, 1.0
	hsum := ts.h[0]
	for j := 1; j < k; j++ {
		hsum += ts.h[j]
		xi := hsum / ts.h[0]
		prod *= xi
		alpha0 -= 1 / float64(j+1)
		alpha1 += 1 / xi
		for i := j + 2; i >= 2; i-- {
			ts.l[i] = ts.l[i]*xiold + ts.l[i-1]
		}
		xiold = xi
	}
	a1 := (-alpha0 - alpha1) / prod
	for m := range ts.z[k+1] {
		ts.z[k+1][m] = a1 * ts.e[m]
	}
	for j := 2; j <= k; j++ {
		floats.AddScaled(ts.z[j], ts.l[j], ts.z[k+1])
	}
	ts.k++
	if ts.k > ts.maxOrderUsed {
		ts.maxOrderUsed = ts.k
	}
}
