// Package spatialmath defines spatial mathematical operations.
// Poses are rigid transforms (a point plus an orientation), translations are in meters and angles in radians.
package spatialmath

import (
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is a rotation in 3D, convertible to every representation the kinematics use.
type Orientation interface {
	AxisAngles() *R4AA
	Quaternion() quat.Number
	EulerAngles() *EulerAngles
	RotationMatrix() *RotationMatrix
}

// NewZeroOrientation returns the identity rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{1, 0, 0, 0}
}

// OrientationAlmostEqual reports whether two orientations describe the same rotation. q and -q are
// treated as equal.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	const tol = 1e-5
	q1, q2 := o1.Quaternion(), o2.Quaternion()
	return QuaternionAlmostEqual(q1, q2, tol) || QuaternionAlmostEqual(q1, quat.Scale(-1, q2), tol)
}
