package ik

import (
	"go.viam.com/taskik/referenceframe"
	"go.viam.com/taskik/spatialmath"
)

// LinkID identifies the link a task is attached to.
type LinkID = referenceframe.LinkID

// EndEffector attaches a task to the tip of the chain.
const EndEffector = referenceframe.EndEffector

// DefaultTolerance is the component-wise convergence tolerance for both translation and rotation matrix entries.
const DefaultTolerance = 0.01

// Tolerance bounds the component-wise difference between a link pose and its goal.
type Tolerance struct {
	Position    float64
	Orientation float64
}

// NewTolerance returns the default tolerance.
func NewTolerance() Tolerance {
	return Tolerance{Position: DefaultTolerance, Orientation: DefaultTolerance}
}

// Task is a Cartesian goal for one link. A task starts pending and latches on target the first time
// the link reaches the goal within tolerance; it never leaves that state.
type Task struct {
	Link     LinkID
	Goal     spatialmath.Pose
	onTarget bool
}

// NewTask returns a pending task.
func NewTask(link LinkID, goal spatialmath.Pose) *Task {
	return &Task{Link: link, Goal: goal}
}

// OnTarget reports whether the task has latched.
func (t *Task) OnTarget() bool {
	return t.onTarget
}

// checkOnTarget latches the task if current is within tol of the goal and returns true only on the
// transition.
func (t *Task) checkOnTarget(current spatialmath.Pose, tol Tolerance) bool {
	if t.onTarget {
		return false
	}
	if spatialmath.PoseAlmostEqualEps(current, t.Goal, tol.Position, tol.Orientation) {
		t.onTarget = true
		return true
	}
	return false
}
