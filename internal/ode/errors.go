package ode

import (
	"errors"
	"fmt"
)

// Domain errors for integration operations.
var (
	// ErrSolverFailure indicates repeated Newton non-convergence.
	ErrSolverFailure = errors.New("ode: nonlinear solver failed repeatedly")

	// ErrMaxSteps indicates the step budget ran out before the target time.
	ErrMaxSteps = errors.New("ode: maximum step count exceeded")

	// ErrNoJacobian indicates the system supplies no analytic Jacobian and
	// no finite-difference wrapper was substituted.
	ErrNoJacobian = errors.New("ode: system does not implement Jacobian")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch between state and system")

	// ErrInvalidOption indicates an out-of-range construction option.
	ErrInvalidOption = errors.New("ode: invalid integrator option")
)

// StepError wraps a terminal integration failure with step context.
type StepError struct {
	Status  Status
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
