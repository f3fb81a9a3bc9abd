// Package ode provides the core primitives for stiff ODE integration.
//
// The package defines the fundamental interfaces and types consumed by the
// BDF time-stepper:
//
//   - [State]: vector representing the system state
//   - [System]: interface for ODE systems (dY/dt = f(Y, t))
//   - [Jacobian]: optional analytic Jacobian df/dY
//   - [Status]: terminal outcome of an integration
//
// # Example
//
//	sys := problems.NewForcedRelaxation()
//	ts, _ := bdf.New(sys, bdf.DefaultOptions(sys.Dim(), 1e-6, 1e-6))
//	y1, err := ts.Advance(sys.DefaultState(), 0, 1, 1e-8, true, false)
//
// # Thread Safety
//
// Integrator instances are NOT thread-safe. Distinct instances are fully
// independent; parallelize across instances, one exclusive owner each.
package ode
