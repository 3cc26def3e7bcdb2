package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() method returns the position in (x,y,z) meters and the Orientation() method
// returns an Orientation object, which has methods to parametrize the rotation in multiple different representations.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return &basePose{orientation: quat.Number{Real: 1}}
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &basePose{point: p, orientation: Normalize(o.Quaternion())}
}

// NewPoseFromOrientation takes in an orientation and returns a Pose with no translation.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &basePose{point: point, orientation: quat.Number{Real: 1}}
}

// NewPoseFromXYZRPY builds a pose from a translation and fixed-axis roll, pitch, yaw angles.
func NewPoseFromXYZRPY(x, y, z, roll, pitch, yaw float64) Pose {
	return NewPose(r3.Vector{X: x, Y: y, Z: z}, &EulerAngles{Roll: roll, Pitch: pitch, Yaw: yaw})
}

type basePose struct {
	point       r3.Vector
	orientation quat.Number
}

func (p *basePose) Point() r3.Vector {
	return p.point
}

func (p *basePose) Orientation() Orientation {
	q := quaternion(p.orientation)
	return &q
}

func (p *basePose) String() string {
	ea := QuatToEulerAngles(p.orientation)
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f Roll:%.4f Pitch:%.4f Yaw:%.4f}",
		p.point.X, p.point.Y, p.point.Z, ea.Roll, ea.Pitch, ea.Yaw)
}

// Compose takes two poses, converts them to transforms and multiplies them together.
// The result is the pose of b expressed in the frame a is expressed in.
func Compose(a, b Pose) Pose {
	qa := Normalize(a.Orientation().Quaternion())
	qb := Normalize(b.Orientation().Quaternion())
	return &basePose{
		point:       a.Point().Add(rotateVector(qa, b.Point())),
		orientation: Normalize(quat.Mul(qa, qb)),
	}
}

// PoseInverse returns the inverse of a pose.
func PoseInverse(p Pose) Pose {
	qInv := quat.Conj(Normalize(p.Orientation().Quaternion()))
	return &basePose{
		point:       rotateVector(qInv, p.Point()).Mul(-1),
		orientation: qInv,
	}
}

// PoseBetween returns the difference between two Poses, i.e. the pose that when composed onto a yields b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// Twist is a 6 dimensional spatial velocity or displacement, linear part first.
type Twist struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// Vector returns the twist as [x y z rx ry rz].
func (t Twist) Vector() []float64 {
	return []float64{t.Linear.X, t.Linear.Y, t.Linear.Z, t.Angular.X, t.Angular.Y, t.Angular.Z}
}

// PoseDelta returns the displacement that takes from to to, expressed in the frame both poses are expressed in.
// The linear part is the difference of the two points. The angular part is the rotation vector of the
// minimal rotation carrying the orientation of from onto the orientation of to.
func PoseDelta(from, to Pose) Twist {
	qFrom := Normalize(from.Orientation().Quaternion())
	qTo := Normalize(to.Orientation().Quaternion())
	return Twist{
		Linear:  to.Point().Sub(from.Point()),
		Angular: QuatToR3AA(quat.Mul(qTo, quat.Conj(qFrom))),
	}
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincident(a, b) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincident will return a bool describing whether 2 poses approximately are at the same 3D coordinate location.
func PoseAlmostCoincident(a, b Pose) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), 1e-8)
}

// PoseAlmostEqualEps compares two poses element by element: every translation component must be within
// pointEps and every entry of the rotation matrices within orientationEps.
func PoseAlmostEqualEps(a, b Pose, pointEps, orientationEps float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), pointEps) &&
		RotationMatrixAlmostEqual(a.Orientation().RotationMatrix(), b.Orientation().RotationMatrix(), orientationEps)
}
