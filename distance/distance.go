package distance

import (
	"fmt"
	"math"
)

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	// MetricEuclidean is the L2 distance. It is the only metric the tree supports.
	MetricEuclidean Metric = iota
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "Euclidean"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricEuclidean:
		return Euclidean, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// SquaredL2 calculates the squared L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
// Accumulates in float64 so that large dimensions do not lose precision.
func SquaredL2(a, b []float32) float64 {
	b = b[:len(a)]

	var s0, s1, s2, s3 float64
	i := 0
	for ; i+4 <= len(a); i += 4 {
		d0 := float64(a[i]) - float64(b[i])
		d1 := float64(a[i+1]) - float64(b[i+1])
		d2 := float64(a[i+2]) - float64(b[i+2])
		d3 := float64(a[i+3]) - float64(b[i+3])
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < len(a); i++ {
		d := float64(a[i]) - float64(b[i])
		s0 += d * d
	}

	return (s0 + s1) + (s2 + s3)
}

// Euclidean calculates the L2 distance between two vectors.
func Euclidean(a, b []float32) float64 {
	return math.Sqrt(SquaredL2(a, b))
}

// IsFinite reports whether every component of v is neither NaN nor infinite.
func IsFinite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
