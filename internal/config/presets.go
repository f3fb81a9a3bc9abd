package config

// Presets are ready-made run configurations per problem, keyed by name.
var Presets = map[string]map[string]*Config{
	"robertson": {
		"short": {
			Problem: "robertson", T1: 0.4, Dt0: 1e-8, Samples: 40,
			Solver: SolverConfig{Rtol: 1e-4, Atol: 1e-8, MaxOrder: 5,
				AtolVec: []float64{1e-8, 1e-12, 1e-8}},
		},
		"long": {
			Problem: "robertson", T1: 1e5, Dt0: 1e-8, Samples: 100,
			Solver: SolverConfig{Rtol: 1e-6, Atol: 1e-10, MaxOrder: 5,
				AtolVec: []float64{1e-10, 1e-14, 1e-10}},
		},
	},
	"decay": {
		"stiff": {
			Problem: "decay", T1: 1.0, Dt0: 1e-6, Samples: 50,
			Solver: SolverConfig{Rtol: 1e-6, Atol: 1e-6, MaxOrder: 5},
		},
	},
	"forced": {
		"default": {
			Problem: "forced", T1: 1.0, Dt0: 1e-8, Samples: 100,
			Solver: SolverConfig{Rtol: 1e-6, Atol: 1e-6, MaxOrder: 5},
		},
	},
	"prothero": {
		"default": {
			Problem: "prothero", T1: 1.0, Dt0: 1e-8, Samples: 100,
			Solver: SolverConfig{Rtol: 1e-6, Atol: 1e-6, MaxOrder: 5},
		},
	},
	"vanderpol": {
		"cycle": {
			Problem: "vanderpol", T1: 3000.0, Dt0: 1e-6, Samples: 300,
			Solver: SolverConfig{Rtol: 1e-6, Atol: 1e-8, MaxOrder: 5},
		},
	},
}

// GetPreset returns the named preset for a problem, or nil.
func GetPreset(problem, name string) *Config {
	group, ok := Presets[problem]
	if !ok {
		return nil
	}
	return group[name]
}

// ListPresets returns the preset names available for a problem.
func ListPresets(problem string) []string {
	group, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	return names
}
