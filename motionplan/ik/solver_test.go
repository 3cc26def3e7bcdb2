package ik

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/taskik/logging"
	"go.viam.com/taskik/referenceframe"
	"go.viam.com/taskik/spatialmath"
	"go.viam.com/taskik/utils"
)

var seed = referenceframe.FloatsToInputs([]float64{0, 0.5, 0, -1.2, 0, 0.7, 0})

func loadChain(t *testing.T) *referenceframe.SimpleModel {
	t.Helper()
	m, err := referenceframe.ParseURDFFile(utils.ResolveFile("components/arm/fake/lwr.urdf"), "lwr_base_link", "lwr_ee_link")
	test.That(t, err, test.ShouldBeNil)
	return m
}

func newTestSolver(t *testing.T, chain Chain, trackRanks bool) *Solver {
	t.Helper()
	cfg := NewSolverConfig()
	cfg.TrackRanks = trackRanks
	s, err := NewSolver(chain, cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return s
}

// shiftedGoal returns the current pose of link moved by offset.
func shiftedGoal(t *testing.T, chain Chain, link LinkID, offset r3.Vector) spatialmath.Pose {
	t.Helper()
	pose, err := chain.LinkPose(seed, link)
	test.That(t, err, test.ShouldBeNil)
	return spatialmath.NewPose(pose.Point().Add(offset), pose.Orientation())
}

func TestNewSolver(t *testing.T) {
	_, err := NewSolver(nil, NewSolverConfig(), nil)
	test.That(t, err, test.ShouldNotBeNil)

	for _, damping := range []float64{-1, 0, math.NaN(), math.Inf(1)} {
		cfg := NewSolverConfig()
		cfg.Damping = damping
		_, err = NewSolver(loadChain(t), cfg, nil)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "damping must be positive")
	}

	s, err := NewSolver(loadChain(t), NewSolverConfig(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Config().Damping, test.ShouldEqual, DefaultDamping)
	test.That(t, s.Config().Tolerance, test.ShouldResemble, Tolerance{Position: 0.01, Orientation: 0.01})
}

func TestFirstTaskIsDampedSolution(t *testing.T) {
	chain := loadChain(t)
	s := newTestSolver(t, chain, false)
	task := NewTask(EndEffector, shiftedGoal(t, chain, EndEffector, r3.Vector{X: 0.05, Z: -0.02}))

	sol, err := s.Solve(seed, []*Task{task})
	test.That(t, err, test.ShouldBeNil)

	jac, err := chain.Jacobian(seed, EndEffector)
	test.That(t, err, test.ShouldBeNil)
	var expected mat.VecDense
	expected.MulVec(DampedPseudoInverse(jac, DefaultDamping), mat.NewVecDense(6, sol.Errors[0][:]))

	test.That(t, sol.Velocities, test.ShouldHaveLength, 7)
	for i, v := range sol.Velocities {
		test.That(t, v, test.ShouldAlmostEqual, expected.AtVec(i), 1e-12)
	}
	test.That(t, sol.Errors[0][0], test.ShouldAlmostEqual, 0.05)
	test.That(t, sol.Errors[0][2], test.ShouldAlmostEqual, -0.02)
	test.That(t, sol.Converged, test.ShouldBeFalse)
	test.That(t, task.OnTarget(), test.ShouldBeFalse)
}

func TestIdentityTaskConverges(t *testing.T) {
	chain := loadChain(t)
	s := newTestSolver(t, chain, false)
	task := NewTask(EndEffector, shiftedGoal(t, chain, EndEffector, r3.Vector{}))

	sol, err := s.Solve(seed, []*Task{task})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, floats.Norm(sol.Velocities, 2), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, sol.Reached, test.ShouldResemble, []int{0})
	test.That(t, sol.Converged, test.ShouldBeTrue)
	test.That(t, task.OnTarget(), test.ShouldBeTrue)
}

func TestOnTargetLatch(t *testing.T) {
	chain := loadChain(t)
	s := newTestSolver(t, chain, false)
	first := NewTask(3, shiftedGoal(t, chain, 3, r3.Vector{}))
	last := NewTask(EndEffector, shiftedGoal(t, chain, EndEffector, r3.Vector{Y: 0.1}))

	sol, err := s.Solve(seed, []*Task{first, last})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Reached, test.ShouldResemble, []int{0})
	// only the lowest priority task converges the list
	test.That(t, sol.Converged, test.ShouldBeFalse)

	// moving the arm away does not unlatch
	away := referenceframe.FloatsToInputs([]float64{0.4, 0.9, 0.2, -0.8, 0.1, 0.4, 0.3})
	sol, err = s.Solve(away, []*Task{first, last})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.OnTarget(), test.ShouldBeTrue)
	test.That(t, sol.Reached, test.ShouldBeEmpty)
	test.That(t, sol.Errors[0][0] != 0 || sol.Errors[0][1] != 0, test.ShouldBeTrue)
}

func TestProjectorRankNonIncreasing(t *testing.T) {
	chain := loadChain(t)
	s := newTestSolver(t, chain, true)
	tasks := []*Task{
		NewTask(3, shiftedGoal(t, chain, 3, r3.Vector{X: 0.02})),
		NewTask(EndEffector, shiftedGoal(t, chain, EndEffector, r3.Vector{Y: 0.05})),
	}
	sol, err := s.Solve(seed, tasks)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.ProjectorRanks, test.ShouldHaveLength, 3)
	test.That(t, sol.ProjectorRanks[0], test.ShouldEqual, 7)
	// link 3 only moves with the first three joints
	test.That(t, sol.ProjectorRanks[1], test.ShouldEqual, 4)
	for i := 1; i < len(sol.ProjectorRanks); i++ {
		test.That(t, sol.ProjectorRanks[i], test.ShouldBeLessThanOrEqualTo, sol.ProjectorRanks[i-1])
	}
}

func TestLowerPriorityInNullSpace(t *testing.T) {
	chain := loadChain(t)
	s := newTestSolver(t, chain, false)
	high := func() *Task { return NewTask(3, shiftedGoal(t, chain, 3, r3.Vector{X: 0.03, Y: -0.01})) }
	low := NewTask(EndEffector, shiftedGoal(t, chain, EndEffector, r3.Vector{Y: 0.1, Z: -0.05}))

	alone, err := s.Solve(seed, []*Task{high()})
	test.That(t, err, test.ShouldBeNil)
	both, err := s.Solve(seed, []*Task{high(), low})
	test.That(t, err, test.ShouldBeNil)

	contribution := make([]float64, 7)
	floats.SubTo(contribution, both.Velocities, alone.Velocities)
	test.That(t, floats.Norm(contribution, 2), test.ShouldBeGreaterThan, 1e-3)

	jac, err := chain.Jacobian(seed, 3)
	test.That(t, err, test.ShouldBeNil)
	var leak mat.VecDense
	leak.MulVec(jac, mat.NewVecDense(7, contribution))
	for i := 0; i < 6; i++ {
		test.That(t, leak.AtVec(i), test.ShouldAlmostEqual, 0, 1e-9)
	}
}

func TestSolveConvergesUnderIntegration(t *testing.T) {
	chain := loadChain(t)
	s := newTestSolver(t, chain, false)
	goal, err := chain.LinkPose(referenceframe.FloatsToInputs([]float64{0.1, 0.6, 0.1, -1.0, 0.1, 0.8, 0.1}), EndEffector)
	test.That(t, err, test.ShouldBeNil)
	task := NewTask(EndEffector, goal)

	q := referenceframe.InputsToFloats(seed)
	const dt = 0.2
	converged := false
	for tick := 0; tick < 1000 && !converged; tick++ {
		sol, err := s.Solve(referenceframe.FloatsToInputs(q), []*Task{task})
		test.That(t, err, test.ShouldBeNil)
		floats.AddScaled(q, dt, sol.Velocities)
		converged = sol.Converged
	}
	test.That(t, converged, test.ShouldBeTrue)
}

func TestSolveErrors(t *testing.T) {
	chain := loadChain(t)
	s := newTestSolver(t, chain, false)

	_, err := s.Solve(seed[:6], nil)
	test.That(t, err, test.ShouldBeError, referenceframe.NewIncorrectDoFError(6, 7))

	_, err = s.Solve(seed, []*Task{NewTask(9, spatialmath.NewZeroPose())})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "task 0")

	sol, err := s.Solve(seed, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Velocities, test.ShouldResemble, make([]float64, 7))
	test.That(t, sol.Converged, test.ShouldBeFalse)
}
