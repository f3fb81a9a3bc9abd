package bdf

import (
	"testing"

	"github.com/san-kum/stiffode/internal/problems"
)

func BenchmarkRobertson(b *testing.B) {
	sys := problems.NewRobertson()
	opts := DefaultOptions(3, 1e-6, 0)
	opts.Atol = []float64{1e-8, 1e-12, 1e-8}
	ts, err := New(sys, opts)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ts.Advance(sys.DefaultState(), 0, 0.4, 1e-8, true, false); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProtheroRobinson(b *testing.B) {
	sys := problems.NewProtheroRobinson()
	ts, err := New(sys, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ts.Advance(sys.DefaultState(), 0, 1.0, 1e-4, true, false); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkStiffDecay(b *testing.B) {
	sys := problems.NewDecay(-1000)
	ts, err := New(sys, DefaultOptions(1, 1e-6, 1e-6))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ts.Advance(sys.DefaultState(), 0, 1.0, 1e-6, true, true); err != nil {
			b.Fatal(err)
		}
	}
}
