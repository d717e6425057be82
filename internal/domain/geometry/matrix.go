// Package geometry computes reduced geometric descriptors from alpha-carbon
// traces: pairwise distance matrices, backbone tangent vectors, and the
// quaternion rotations between consecutive tangents.  All functions are pure;
// no I/O and no side effects.
package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DistanceMatrix returns the pairwise Euclidean distance matrix of the given
// alpha-carbon coordinates, in the same length unit as the input (angstroms).
// The result is symmetric with an exactly zero diagonal.  Fewer than two
// coordinates yield a 0x0 matrix, not an error.
func DistanceMatrix(cas []r3.Vec) *mat.SymDense {
	n := len(cas)
	if n < 2 {
		return &mat.SymDense{}
	}
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, r3.Norm(r3.Sub(cas[j], cas[i])))
		}
	}
	return m
}

// Flatten returns the strict upper triangle of a symmetric matrix read in
// row-major order.  For an RxR input the output has length R*(R-1)/2; 0x0
// and 1x1 matrices flatten to an empty slice.
//
// A length mismatch is a programming error and panics rather than returning
// a recoverable error.
func Flatten(m *mat.SymDense) []float64 {
	n := m.SymmetricDim()
	out := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, m.At(i, j))
		}
	}
	if len(out) != n*(n-1)/2 {
		panic(fmt.Sprintf("geometry: flattened %dx%d matrix to %d values, want %d",
			n, n, len(out), n*(n-1)/2))
	}
	return out
}
