// Package problems provides stiff benchmark systems with analytic
// Jacobians. Every system implements ode.System and ode.Jacobian and can be
// looked up by name through the registry.
package problems
