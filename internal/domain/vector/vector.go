// Package vector implements the dense float64 arithmetic shared by the
// vectorizers, the scorer and the diversifier. Vectors are treated as values:
// every operation returns a fresh slice and never mutates its inputs.
package vector

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/citymatch/internal/domain"
)

// Vector is a fixed-dimension dense vector.
type Vector []float64

// Zeros returns a zero vector of the given dimension.
func Zeros(dim int) Vector {
	return make(Vector, dim)
}

// FromFloat32 widens an embedding returned by a provider.
func FromFloat32(v []float32) Vector {
	out := make(Vector, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func checkDims(a, b Vector) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d vs %d", domain.ErrVectorDimMismatch, len(a), len(b))
	}
	return nil
}

// Dot returns the inner product of a and b.
func Dot(a, b Vector) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s, nil
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// Normalize returns v scaled to unit L2 norm. A zero vector is returned as a zero vector.
func (v Vector) Normalize() Vector {
	n := v.Norm()
	if n == 0 {
		return Zeros(len(v))
	}
	return v.Scale(1 / n)
}

// Cosine returns the cosine similarity of a and b. Similarity with a zero vector is 0.
func Cosine(a, b Vector) (float64, error) {
	dot, err := Dot(a, b)
	if err != nil {
		return 0, err
	}
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (na * nb), nil
}

// Sub returns a - b.
func Sub(a, b Vector) (Vector, error) {
	if err := checkDims(a, b); err != nil {
		return nil, err
	}
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out, nil
}

// Scale returns v multiplied by f.
func (v Vector) Scale(f float64) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x * f
	}
	return out
}
