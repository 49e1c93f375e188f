package distance

import (
	"math"
	"math/rand"
	"testing"
)

func TestEuclideanIdentity(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	if d := EuclideanDistance(a, a); d != 0 {
		t.Fatalf("EuclideanDistance(a, a) = %v, want 0", d)
	}
}

func TestEuclideanSymmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, -1, 0.5}
	if EuclideanDistance(a, b) != EuclideanDistance(b, a) {
		t.Fatalf("EuclideanDistance not symmetric")
	}
}

func TestEuclideanKnownValue(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}
	if d := EuclideanDistance(a, b); math.Abs(float64(d)-5.0) > 1e-5 {
		t.Fatalf("EuclideanDistance = %v, want 5", d)
	}
}

func TestCosineIdentity(t *testing.T) {
	a := []float32{1, 2, 3}
	if d := CosineDistance(a, a); math.Abs(float64(d)) > 1e-5 {
		t.Fatalf("CosineDistance(a, a) = %v, want ~0", d)
	}
}

func TestCosineZeroNorm(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	if d := CosineDistance(a, b); d != 1.0 {
		t.Fatalf("CosineDistance with zero-norm vector = %v, want 1.0", d)
	}
	if d := CosineDistance(a, a); d != 1.0 {
		t.Fatalf("CosineDistance(zero, zero) = %v, want 1.0", d)
	}
}

func TestCosineOppositeDirection(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	if d := CosineDistance(a, b); math.Abs(float64(d)-2.0) > 1e-5 {
		t.Fatalf("CosineDistance of opposite vectors = %v, want 2.0", d)
	}
}

func TestHammingCountsMismatches(t *testing.T) {
	a := []float32{1, 0, 1, 0}
	b := []float32{1, 1, 0, 0}
	if d := HammingDistance(a, b); d != 2 {
		t.Fatalf("HammingDistance = %v, want 2", d)
	}
}

func TestComputeNegatesDotProduct(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	want := -Dot(a, b)
	if got := Compute(DotProduct, a, b); got != want {
		t.Fatalf("Compute(DotProduct) = %v, want %v", got, want)
	}
}

func TestParseMetricRoundTrip(t *testing.T) {
	for _, m := range []Metric{Euclidean, Cosine, DotProduct, Hamming} {
		parsed, ok := ParseMetric(m.String())
		if !ok {
			t.Fatalf("ParseMetric(%q) failed", m.String())
		}
		if parsed != m {
			t.Fatalf("ParseMetric(%q) = %v, want %v", m.String(), parsed, m)
		}
	}
	if _, ok := ParseMetric("Bogus"); ok {
		t.Fatalf("ParseMetric(\"Bogus\") should fail")
	}
}

// TestBlockScalarEquivalence checks the vek32-backed Dot and the 16-lane
// block EuclideanSquared agree with their scalar references across a range of
// vector lengths, including ones that don't divide evenly into 16-lane
// blocks.
func TestBlockScalarEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{1, 3, 15, 16, 17, 31, 32, 33, 63, 100} {
		a := randVec(rng, n)
		b := randVec(rng, n)

		gotDot := Dot(a, b)
		wantDot := ScalarDot(a, b)
		if math.Abs(float64(gotDot-wantDot)) > 1e-3 {
			t.Fatalf("n=%d: Dot = %v, ScalarDot = %v", n, gotDot, wantDot)
		}

		gotSq := EuclideanSquared(a, b)
		wantSq := ScalarSumSquares(a, b)
		if math.Abs(float64(gotSq-wantSq)) > 1e-3 {
			t.Fatalf("n=%d: EuclideanSquared = %v, ScalarSumSquares = %v", n, gotSq, wantSq)
		}
	}
}

func randVec(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(rng.Float64()*2 - 1)
	}
	return v
}
