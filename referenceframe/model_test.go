package referenceframe

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	spatial "go.viam.com/taskik/spatialmath"
	"go.viam.com/taskik/utils"
)

var lwrSeed = []float64{0, 0.5, 0, -1.2, 0, 0.7, 0}

func loadLWR(t *testing.T) *SimpleModel {
	t.Helper()
	m, err := ParseURDFFile(utils.ResolveFile("components/arm/fake/lwr.urdf"), "lwr_base_link", "lwr_ee_link")
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestLinkPose(t *testing.T) {
	m := loadLWR(t)
	zero := make([]Input, 7)

	ee, err := m.LinkPose(zero, EndEffector)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.R3VectorAlmostEqual(ee.Point(), r3.Vector{Z: 1.228}, 1e-9), test.ShouldBeTrue)

	tf, err := m.Transform(zero)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostEqual(tf, ee), test.ShouldBeTrue)

	l1, err := m.LinkPose(zero, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.R3VectorAlmostEqual(l1.Point(), r3.Vector{Z: 0.11}, 1e-9), test.ShouldBeTrue)

	l7, err := m.LinkPose(zero, 7)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l7.Point().Z, test.ShouldAlmostEqual, 1.178)

	bent := FloatsToInputs([]float64{0, math.Pi / 2, 0, 0, 0, 0, 0})
	l2, err := m.LinkPose(bent, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.R3VectorAlmostEqual(l2.Point(), r3.Vector{Z: 0.31}, 1e-9), test.ShouldBeTrue)
	// link 2 carries the rotation of joint 2
	test.That(t, spatial.OrientationAlmostEqual(l2.Orientation(), &spatial.R4AA{Theta: math.Pi / 2, RY: -1}), test.ShouldBeTrue)

	l3, err := m.LinkPose(bent, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.R3VectorAlmostEqual(l3.Point(), r3.Vector{X: -0.2, Z: 0.31}, 1e-9), test.ShouldBeTrue)
}

func TestIncorrectInputs(t *testing.T) {
	m := loadLWR(t)

	pose, err := m.LinkPose(make([]Input, 8), EndEffector)
	test.That(t, pose, test.ShouldBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, NewIncorrectDoFError(8, 7).Error())

	_, err = m.LinkPose(make([]Input, 6), 3)
	test.That(t, err, test.ShouldNotBeNil)

	for _, link := range []LinkID{0, 8, -2} {
		_, err = m.LinkPose(make([]Input, 7), link)
		test.That(t, err, test.ShouldBeError, NewLinkOutOfRangeError(link, 7))
		_, err = m.Jacobian(make([]Input, 7), link)
		test.That(t, err, test.ShouldNotBeNil)
	}
	test.That(t, m.ValidateLink(EndEffector), test.ShouldBeNil)
	test.That(t, m.ValidateLink(7), test.ShouldBeNil)
}

func TestModelAccessors(t *testing.T) {
	m := loadLWR(t)
	test.That(t, m.Name(), test.ShouldEqual, "lwr")
	test.That(t, m.NumJoints(), test.ShouldEqual, 7)
	test.That(t, m.JointNames()[0], test.ShouldEqual, "lwr_a1_joint")
	test.That(t, m.JointNames()[6], test.ShouldEqual, "lwr_a7_joint")
	limits := m.DoF()
	test.That(t, limits, test.ShouldHaveLength, 7)
	test.That(t, limits[1].Max, test.ShouldAlmostEqual, 2.09)
	test.That(t, m.DoF(), test.ShouldResemble, limits)
}

// numericJacobian differentiates LinkPose with central differences.
func numericJacobian(t *testing.T, m *SimpleModel, q []float64, link LinkID) [][6]float64 {
	t.Helper()
	const h = 1e-6
	cols := make([][6]float64, len(q))
	for i := range q {
		plus := append([]float64(nil), q...)
		minus := append([]float64(nil), q...)
		plus[i] += h
		minus[i] -= h
		pp, err := m.LinkPose(FloatsToInputs(plus), link)
		test.That(t, err, test.ShouldBeNil)
		pm, err := m.LinkPose(FloatsToInputs(minus), link)
		test.That(t, err, test.ShouldBeNil)
		d := spatial.PoseDelta(pm, pp).Vector()
		for r := 0; r < 6; r++ {
			cols[i][r] = d[r] / (2 * h)
		}
	}
	return cols
}

func TestJacobianMatchesFiniteDifferences(t *testing.T) {
	m := loadLWR(t)
	for _, link := range []LinkID{EndEffector, 7, 4, 1} {
		jac, err := m.Jacobian(FloatsToInputs(lwrSeed), link)
		test.That(t, err, test.ShouldBeNil)
		rows, cols := jac.Dims()
		test.That(t, rows, test.ShouldEqual, 6)
		test.That(t, cols, test.ShouldEqual, 7)

		numeric := numericJacobian(t, m, lwrSeed, link)
		for c := 0; c < 7; c++ {
			for r := 0; r < 6; r++ {
				test.That(t, jac.At(r, c), test.ShouldAlmostEqual, numeric[c][r], 1e-5)
			}
		}
	}
}

func TestJacobianTrailingColumnsZero(t *testing.T) {
	m := loadLWR(t)
	jac, err := m.Jacobian(FloatsToInputs(lwrSeed), 3)
	test.That(t, err, test.ShouldBeNil)
	for c := 3; c < 7; c++ {
		for r := 0; r < 6; r++ {
			test.That(t, jac.At(r, c), test.ShouldEqual, 0.)
		}
	}
	// joint 1 turns about base z
	test.That(t, jac.At(5, 0), test.ShouldAlmostEqual, 1.)
}

const slideURDF = `<robot name="slide">
  <link name="base"/>
  <link name="carriage"/>
  <link name="head"/>
  <joint name="rail" type="prismatic">
    <parent link="base"/>
    <child link="carriage"/>
    <origin xyz="0 0 0.5"/>
    <axis xyz="2 0 0"/>
    <limit lower="0" upper="1"/>
  </joint>
  <joint name="wrist" type="continuous">
    <parent link="carriage"/>
    <child link="head"/>
    <origin xyz="0.1 0 0" rpy="0 0 1.5707963267948966"/>
    <axis xyz="0 0 1"/>
  </joint>
</robot>`

func TestPrismaticJacobian(t *testing.T) {
	m, err := ParseURDF([]byte(slideURDF), "base", "head")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.NumJoints(), test.ShouldEqual, 2)
	test.That(t, math.IsInf(m.DoF()[1].Max, 1), test.ShouldBeTrue)

	q := FloatsToInputs([]float64{0.3, 0.4})
	pose, err := m.LinkPose(q, EndEffector)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 0.4, Z: 0.5}, 1e-9), test.ShouldBeTrue)

	jac, err := m.Jacobian(q, EndEffector)
	test.That(t, err, test.ShouldBeNil)
	// slide moves along x with no rotation
	test.That(t, jac.At(0, 0), test.ShouldAlmostEqual, 1.)
	for r := 1; r < 6; r++ {
		test.That(t, jac.At(r, 0), test.ShouldAlmostEqual, 0.)
	}
	// tip sits on the wrist axis, so the wrist only contributes rotation
	test.That(t, jac.At(0, 1), test.ShouldAlmostEqual, 0.)
	test.That(t, jac.At(1, 1), test.ShouldAlmostEqual, 0.)
	test.That(t, jac.At(5, 1), test.ShouldAlmostEqual, 1.)
}
