package features

import (
	"gopkg.in/guregu/null.v3"
)

// StochasticTolerance is how far a probability row may drift from summing to
// 1 after the round trip through a textual table.
const StochasticTolerance = 1e-3

// Features are the descriptors derived from one configuration's A, B and pi.
type Features struct {
	AEntropy    float64
	BEntropy    float64
	ANormalized float64
	BNormalized float64
	ACategory   Category
	BCategory   Category
	PiType      PiType

	// Lambda2 is the second eigenvalue modulus of A. It is absent when A is
	// missing, not square or not stochastic.
	Lambda2 null.Float

	// Stochastic reports whether A, B and pi all passed IsStochastic /
	// IsDistribution. Rows that fail are kept; this is informational.
	Stochastic bool
}

// Extract computes every descriptor once. Empty inputs are tolerated and
// produce zero entropies.
func Extract(a, b [][]float64, pi []float64) Features {
	f := Features{
		AEntropy:    MatrixEntropy(a),
		BEntropy:    MatrixEntropy(b),
		ANormalized: NormalizedEntropy(a),
		BNormalized: NormalizedEntropy(b),
		PiType:      ClassifyPi(pi),
	}
	f.ACategory = Categorize(f.AEntropy)
	f.BCategory = Categorize(f.BEntropy)

	aOK := IsStochastic(a, StochasticTolerance)
	f.Stochastic = aOK && IsStochastic(b, StochasticTolerance) && IsDistribution(pi, StochasticTolerance)

	if aOK {
		if l2, err := SecondEigenvalue(a); err == nil {
			f.Lambda2 = null.FloatFrom(l2)
		}
	}

	return f
}
