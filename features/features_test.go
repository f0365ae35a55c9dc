package features

import (
	"math"
	"testing"
)

func TestRowEntropyBounds(t *testing.T) {
	for _, c := range []struct {
		P        []float64
		Expected float64
	}{
		{[]float64{1, 0, 0, 0}, 0},
		{[]float64{0, 1}, 0},
		{[]float64{0.5, 0.5}, 1},
		{[]float64{0.25, 0.25, 0.25, 0.25}, 2},
		{[]float64{0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0.125}, 3},
		{[]float64{0.5, 0.25, 0.25}, 1.5},
	} {
		if e := RowEntropy(c.P); math.Abs(e-c.Expected) > 1e-12 {
			t.Errorf("%v: expected %f, got %f", c.P, c.Expected, e)
		}
	}
}

func TestRowEntropyWithinLog2N(t *testing.T) {
	for _, p := range [][]float64{
		{0.1, 0.2, 0.3, 0.4},
		{0.9, 0.05, 0.05},
		{0.7, 0.3},
		{0.2, 0.2, 0.2, 0.2, 0.2},
	} {
		e := RowEntropy(p)
		if e < 0 || e > math.Log2(float64(len(p)))+1e-12 {
			t.Errorf("%v: entropy %f outside [0, log2(%d)]", p, e, len(p))
		}
	}
}

func TestRowEntropySkipsNonPositive(t *testing.T) {
	e := RowEntropy([]float64{0.5, 0, -0.1, math.NaN(), 0.5})
	if math.IsNaN(e) || math.Abs(e-1) > 1e-12 {
		t.Errorf("Expected 1, got %f", e)
	}
}

func TestMatrixEntropy(t *testing.T) {
	if e := MatrixEntropy(nil); e != 0 {
		t.Errorf("Empty matrix should have 0 entropy, got %f", e)
	}

	m := [][]float64{
		{1, 0},
		{0.5, 0.5},
	}
	if e := MatrixEntropy(m); math.Abs(e-0.5) > 1e-12 {
		t.Errorf("Expected 0.5, got %f", e)
	}
	if n := NormalizedEntropy(m); math.Abs(n-0.5) > 1e-12 {
		t.Errorf("Expected normalized 0.5, got %f", n)
	}
}

func TestCategorize(t *testing.T) {
	for _, c := range []struct {
		E        float64
		Expected Category
	}{
		{-1, Entropy0},
		{math.NaN(), Entropy0},
		{0, Entropy0},
		{0.01, Entropy0},
		{0.2499, Entropy0},
		{0.25, Entropy0_5},
		{0.7499, Entropy0_5},
		{0.75, Entropy1},
		{1, Entropy1},
		{1.25, Entropy1_5},
		{2, Entropy2},
		{2.6, Entropy2_5},
		{3, Entropy3},
		{3.74, Entropy3_5},
		{3.75, Entropy4Up},
		{8, Entropy4Up},
		{math.Inf(1), Entropy4Up},
	} {
		if got := Categorize(c.E); got != c.Expected {
			t.Errorf("Categorize(%v): expected %s, got %s", c.E, c.Expected, got)
		}
	}
}

func TestCategorizePartitionIsContiguous(t *testing.T) {
	// Walking the range in small steps must visit the buckets in order, each
	// one exactly once.
	seen := make([]Category, 0)
	for e := 0.0; e < 5; e += 0.001 {
		c := Categorize(e)
		if len(seen) == 0 || seen[len(seen)-1] != c {
			seen = append(seen, c)
		}
	}

	all := Categories()
	if len(seen) != len(all) {
		t.Fatalf("Expected %d buckets, saw %v", len(all), seen)
	}
	for i := range all {
		if seen[i] != all[i] {
			t.Errorf("Bucket %d: expected %s, got %s", i, all[i], seen[i])
		}
	}

	for i, c := range all[1:] {
		if Categorize(c.Lower()) != c {
			t.Errorf("Lower bound of %s does not map to itself", c)
		}
		if Categorize(math.Nextafter(c.Lower(), 0)) != all[i] {
			t.Errorf("Value just below %s should be in %s", c, all[i])
		}
	}
}

func TestClassifyPi(t *testing.T) {
	for _, c := range []struct {
		Pi       []float64
		Expected PiType
	}{
		{[]float64{1, 0, 0, 0}, PiDeterministic},
		{[]float64{0, 0, 0.999999, 0.000001}, PiDeterministic},
		{[]float64{0.25, 0.25, 0.25, 0.25}, PiUniform},
		{[]float64{0.5, 0.5, 0, 0}, PiUniform},
		{[]float64{1, 1}, PiUniform},
		{nil, PiUniform},
	} {
		if got := ClassifyPi(c.Pi); got != c.Expected {
			t.Errorf("ClassifyPi(%v): expected %s, got %s", c.Pi, c.Expected, got)
		}
	}
}

func TestSecondEigenvalue(t *testing.T) {
	// Eigenvalues of [[0.9 0.1] [0.2 0.8]] are 1 and 0.7.
	l2, err := SecondEigenvalue([][]float64{{0.9, 0.1}, {0.2, 0.8}})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(l2-0.7) > 1e-9 {
		t.Errorf("Expected 0.7, got %f", l2)
	}

	// A permutation has eigenvalues of modulus 1.
	l2, err = SecondEigenvalue([][]float64{{0, 1}, {1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(l2-1) > 1e-9 {
		t.Errorf("Expected 1, got %f", l2)
	}

	if _, err := SecondEigenvalue([][]float64{{1, 0}}); err != ErrNotSquare {
		t.Errorf("Expected ErrNotSquare, got %v", err)
	}
}

func TestExtract(t *testing.T) {
	a := [][]float64{{0.5, 0.5}, {0.5, 0.5}}
	b := [][]float64{{1, 0, 0}, {0, 1, 0}}
	f := Extract(a, b, []float64{1, 0})

	if f.AEntropy != 1 || f.ACategory != Entropy1 {
		t.Errorf("Unexpected A descriptors: %+v", f)
	}
	if f.BEntropy != 0 || f.BCategory != Entropy0 {
		t.Errorf("Unexpected B descriptors: %+v", f)
	}
	if f.PiType != PiDeterministic {
		t.Errorf("Expected deterministic pi, got %s", f.PiType)
	}
	if !f.Stochastic {
		t.Error("Expected stochastic inputs")
	}
	if !f.Lambda2.Valid || math.Abs(f.Lambda2.Float64) > 1e-9 {
		t.Errorf("Expected lambda2 0, got %+v", f.Lambda2)
	}

	empty := Extract(nil, nil, nil)
	if empty.AEntropy != 0 || empty.Lambda2.Valid || empty.Stochastic {
		t.Errorf("Unexpected descriptors for empty input: %+v", empty)
	}
}
