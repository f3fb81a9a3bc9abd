package problems

import (
	"fmt"
	"sort"

	"github.com/san-kum/stiffode/internal/ode"
)

// Stiff couples an ODE system with the extras the CLI and runner need:
// every benchmark carries its Jacobian and a default initial condition.
type Stiff interface {
	ode.System
	ode.Jacobian
	DefaultState() ode.State
}

var factories = map[string]func() Stiff{
	"decay":     func() Stiff { return NewDecay(-1000.0) },
	"forced":    func() Stiff { return NewForcedRelaxation() },
	"prothero":  func() Stiff { return NewProtheroRobinson() },
	"robertson": func() Stiff { return NewRobertson() },
	"vanderpol": func() Stiff { return NewVanDerPol() },
}

// New returns a fresh instance of the named benchmark system.
func New(name string) (Stiff, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s (available: %v)", name, List())
	}
	return fn(), nil
}

// List returns the registered problem names, sorted.
func List() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
