package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/foldbank/foldbank/pkg/errors"
)

// degenerateEps bounds the squared 4-norm below which a pre-normalization
// quaternion is treated as indeterminate (antiparallel input vectors).
const degenerateEps = 1e-12

// Quaternion is a unit 4-vector (W, X, Y, Z) representing a 3D rotation.
type Quaternion struct {
	W, X, Y, Z float64
}

// Norm returns the 4-vector Euclidean norm.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// TangentVectors returns the unit vectors between consecutive alpha-carbon
// coordinates, length len(cas)-1.
//
// Two exactly coincident consecutive coordinates make normalization
// undefined; the function fails with ErrCodeDegenerateVector instead of
// propagating NaN.  The caller decides whether to skip the structure or
// abort — this layer never drops segments silently.
func TangentVectors(cas []r3.Vec) ([]r3.Vec, error) {
	if len(cas) < 2 {
		return nil, nil
	}
	out := make([]r3.Vec, 0, len(cas)-1)
	for i := 0; i+1 < len(cas); i++ {
		d := r3.Sub(cas[i+1], cas[i])
		n := r3.Norm(d)
		if n == 0 {
			return nil, errors.Newf(errors.ErrCodeDegenerateVector,
				"alpha-carbons %d and %d coincide", i, i+1)
		}
		out = append(out, r3.Scale(1/n, d))
	}
	return out, nil
}

// RotationBetween returns the minimal rotation mapping unit vector v1 onto
// unit vector v2:
//
//	w   = 1 + dot(v1, v2)        (unit inputs)
//	xyz = cross(v1, v2)
//
// normalized to a unit quaternion.  Antiparallel inputs zero both the scalar
// and vector parts, leaving the rotation axis undefined; that case fails
// with ErrCodeDegenerateRotation rather than producing (0,0,0,0) or NaN.
func RotationBetween(v1, v2 r3.Vec) (Quaternion, error) {
	w := 1 + r3.Dot(v1, v2)
	c := r3.Cross(v1, v2)

	norm2 := w*w + c.X*c.X + c.Y*c.Y + c.Z*c.Z
	if norm2 < degenerateEps {
		return Quaternion{}, errors.New(errors.ErrCodeDegenerateRotation,
			"tangent vectors are antiparallel, rotation axis undefined")
	}

	inv := 1 / math.Sqrt(norm2)
	return Quaternion{W: w * inv, X: c.X * inv, Y: c.Y * inv, Z: c.Z * inv}, nil
}

// ConsecutiveQuaternions returns the rotation between each consecutive pair
// of tangent vectors, length len(vecs)-1.
func ConsecutiveQuaternions(vecs []r3.Vec) ([]Quaternion, error) {
	if len(vecs) < 2 {
		return nil, nil
	}
	out := make([]Quaternion, 0, len(vecs)-1)
	for i := 0; i+1 < len(vecs); i++ {
		q, err := RotationBetween(vecs[i], vecs[i+1])
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeUnknown,
				fmt.Sprintf("rotation between tangents %d and %d", i, i+1))
		}
		out = append(out, q)
	}
	return out, nil
}

// FlattenQuaternions concatenates quaternion components in order,
// length 4*len(qs).  Pure reshape, no computation.
func FlattenQuaternions(qs []Quaternion) []float64 {
	out := make([]float64, 0, 4*len(qs))
	for _, q := range qs {
		out = append(out, q.W, q.X, q.Y, q.Z)
	}
	return out
}
