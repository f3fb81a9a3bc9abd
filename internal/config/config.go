package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultT1       = 1.0
	DefaultDt0      = 1e-8
	DefaultRtol     = 1e-6
	DefaultAtol     = 1e-6
	DefaultMaxOrder = 5
	DefaultSamples  = 100
)

// Config describes one integration run: which problem, over what interval,
// and how the solver is tuned.
type Config struct {
	Problem string       `yaml:"problem"`
	T0      float64      `yaml:"t0"`
	T1      float64      `yaml:"t1"`
	Dt0     float64      `yaml:"dt0"`
	Samples int          `yaml:"samples"`
	Solver  SolverConfig `yaml:"solver"`
}

// SolverConfig maps onto bdf.Options. Per-component tolerances override the
// uniform ones when present.
type SolverConfig struct {
	Rtol         float64   `yaml:"rtol"`
	Atol         float64   `yaml:"atol"`
	RtolVec      []float64 `yaml:"rtol_vec,omitempty"`
	AtolVec      []float64 `yaml:"atol_vec,omitempty"`
	MaxOrder     int       `yaml:"max_order"`
	MaxSteps     int       `yaml:"max_steps,omitempty"`
	MaxIters     int       `yaml:"max_newton_iters,omitempty"`
	DtMin        float64   `yaml:"dt_min,omitempty"`
	EtaMin       float64   `yaml:"eta_min,omitempty"`
	EtaMax       float64   `yaml:"eta_max,omitempty"`
	EtaThresh    float64   `yaml:"eta_thresh,omitempty"`
	MaxJacAge    int       `yaml:"max_jacobian_age,omitempty"`
	MaxMatrixAge int       `yaml:"max_matrix_age,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem: "robertson",
		T0:      0,
		T1:      DefaultT1,
		Dt0:     DefaultDt0,
		Samples: DefaultSamples,
		Solver: SolverConfig{
			Rtol:     DefaultRtol,
			Atol:     DefaultAtol,
			MaxOrder: DefaultMaxOrder,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Tolerances expands the configured tolerances to per-component slices of
// length n.
func (c *Config) Tolerances(n int) (rtol, atol []float64) {
	rtol = make([]float64, n)
	atol = make([]float64, n)
	for i := 0; i < n; i++ {
		rtol[i] = c.Solver.Rtol
		atol[i] = c.Solver.Atol
		if i < len(c.Solver.RtolVec) {
			rtol[i] = c.Solver.RtolVec[i]
		}
		if i < len(c.Solver.AtolVec) {
			atol[i] = c.Solver.AtolVec[i]
		}
	}
	return rtol, atol
}
