package bdf

// pascalMatrix builds the upper-triangular binomial matrix a[i][j] = C(j, i)
// used by the Nordsieck predictor and by order changes. Built once per
// integrator via Pascal's rule; n is max_order+1.
func pascalMatrix(n int) [][]float64 {
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		a[0][j] = 1
		for i := 1; i <= j; i++ {
			a[i][j] = a[i-1][j-1] + a[i][j-1]
		}
	}
	return a
}
