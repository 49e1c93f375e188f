// Package distance implements the four similarity kernels used throughout
// the index layers: Euclidean, Cosine, Dot, and Hamming. All are normalized
// so that lower means more similar; the dot-product metric is exposed
// negated so ordering stays uniform across metrics.
//
// Dot uses viterin/vek's vectorized kernel and EuclideanSquared a
// hand-rolled 16-lane-block-plus-scalar-tail loop. ScalarDot (a block loop)
// and ScalarSumSquares (a plain scalar loop) are the references a
// block/scalar equivalence property test checks them against.
package distance

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Metric identifies which kernel a collection or index was configured with.
type Metric uint8

const (
	Euclidean Metric = iota
	Cosine
	DotProduct
	Hamming
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "Euclidean"
	case Cosine:
		return "Cosine"
	case DotProduct:
		return "DotProduct"
	case Hamming:
		return "Hamming"
	default:
		return "Unknown"
	}
}

// ParseMetric parses the on-disk metadata string back into a Metric.
func ParseMetric(s string) (Metric, bool) {
	switch s {
	case "Euclidean":
		return Euclidean, true
	case "Cosine":
		return Cosine, true
	case "DotProduct":
		return DotProduct, true
	case "Hamming":
		return Hamming, true
	default:
		return 0, false
	}
}

// Compute dispatches to the metric's kernel. Callers are responsible for
// checking a.len() == b.len() beforehand; this package assumes equal length.
func Compute(m Metric, a, b []float32) float32 {
	switch m {
	case Euclidean:
		return EuclideanDistance(a, b)
	case Cosine:
		return CosineDistance(a, b)
	case DotProduct:
		return -Dot(a, b)
	case Hamming:
		return HammingDistance(a, b)
	default:
		return EuclideanDistance(a, b)
	}
}

// LowerIsBetter is always true; kept for readability at call sites that
// branch on metric semantics rather than assume the convention.
func LowerIsBetter(Metric) bool { return true }

// Dot computes the dot product, preferring vek32's vectorized kernel.
func Dot(a, b []float32) float32 {
	return vek32.Dot(a, b)
}

// EuclideanSquared computes the squared Euclidean distance without the
// trailing sqrt, used as the comparison primitive wherever only relative
// ordering matters (the HNSW hot path).
func EuclideanSquared(a, b []float32) float32 {
	var sum float32
	n := len(a)
	i := 0
	for ; i+16 <= n; i += 16 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		d4 := a[i+4] - b[i+4]
		d5 := a[i+5] - b[i+5]
		d6 := a[i+6] - b[i+6]
		d7 := a[i+7] - b[i+7]
		d8 := a[i+8] - b[i+8]
		d9 := a[i+9] - b[i+9]
		d10 := a[i+10] - b[i+10]
		d11 := a[i+11] - b[i+11]
		d12 := a[i+12] - b[i+12]
		d13 := a[i+13] - b[i+13]
		d14 := a[i+14] - b[i+14]
		d15 := a[i+15] - b[i+15]
		sum += d0*d0 + d1*d1 + d2*d2 + d3*d3 + d4*d4 + d5*d5 + d6*d6 + d7*d7 +
			d8*d8 + d9*d9 + d10*d10 + d11*d11 + d12*d12 + d13*d13 + d14*d14 + d15*d15
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// EuclideanDistance is EuclideanSquared's square root, computed only when
// the scalar value itself is externally visible.
func EuclideanDistance(a, b []float32) float32 {
	return float32(math.Sqrt(float64(EuclideanSquared(a, b))))
}

// CosineDistance returns 1 - cos(a,b); 1.0 (maximally dissimilar, never
// NaN) when either vector has zero norm.
func CosineDistance(a, b []float32) float32 {
	dot := Dot(a, b)
	normA := float32(math.Sqrt(float64(Dot(a, a))))
	normB := float32(math.Sqrt(float64(Dot(b, b))))
	denom := normA * normB
	if denom == 0 {
		return 1.0
	}
	return 1.0 - dot/denom
}

// HammingDistance counts positions where (a[i] > 0.5) != (b[i] > 0.5).
func HammingDistance(a, b []float32) float32 {
	var count float32
	for i := range a {
		if (a[i] > 0.5) != (b[i] > 0.5) {
			count++
		}
	}
	return count
}

// ScalarDot is the hand-rolled 16-lane-block-plus-scalar-tail dot product,
// kept as the naive reference the block/scalar equivalence property test
// checks the vek32-backed Dot against.
func ScalarDot(a, b []float32) float32 {
	var sum float32
	n := len(a)
	i := 0
	for ; i+16 <= n; i += 16 {
		sum += a[i]*b[i] + a[i+1]*b[i+1] + a[i+2]*b[i+2] + a[i+3]*b[i+3] +
			a[i+4]*b[i+4] + a[i+5]*b[i+5] + a[i+6]*b[i+6] + a[i+7]*b[i+7] +
			a[i+8]*b[i+8] + a[i+9]*b[i+9] + a[i+10]*b[i+10] + a[i+11]*b[i+11] +
			a[i+12]*b[i+12] + a[i+13]*b[i+13] + a[i+14]*b[i+14] + a[i+15]*b[i+15]
	}
	for ; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// ScalarSumSquares is the naive scalar reference for EuclideanSquared.
func ScalarSumSquares(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
