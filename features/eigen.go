package features

import (
	"errors"
	"fmt"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotSquare    = errors.New("matrix is not square")
	ErrNoEigenvalue = errors.New("eigendecomposition did not converge")
)

// SecondEigenvalue returns the modulus of the second-largest eigenvalue (by
// modulus) of the square matrix a. For a stochastic matrix the largest is 1
// and the second governs the mixing rate of the chain. A 1x1 matrix yields 0.
func SecondEigenvalue(a [][]float64) (float64, error) {
	n := len(a)
	if n == 0 {
		return 0, ErrNotSquare
	}
	for _, row := range a {
		if len(row) != n {
			return 0, ErrNotSquare
		}
	}
	if n == 1 {
		return 0, nil
	}

	data := make([]float64, 0, n*n)
	for _, row := range a {
		data = append(data, row...)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(mat.NewDense(n, n, data), mat.EigenNone); !ok {
		return 0, ErrNoEigenvalue
	}

	values := eig.Values(nil)
	moduli := make([]float64, 0, len(values))
	for _, v := range values {
		moduli = append(moduli, cmplx.Abs(v))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(moduli)))

	if len(moduli) < 2 {
		return 0, fmt.Errorf("expected %d eigenvalues, got %d", n, len(moduli))
	}

	return moduli[1], nil
}
