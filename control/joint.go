// Package control contains the joint level pieces of a torque control loop: joint handles, the
// trajectory integrator, per joint PID feedback and the fixed rate loop that drives a Controller.
package control

import (
	"time"
)

// JointHandle reads the state of one actuated joint and accepts an effort command.
type JointHandle interface {
	Name() string
	Position() float64
	Velocity() float64
	SetCommand(effort float64)
}

// JointState is the measured and desired state of one joint.
type JointState struct {
	Name            string
	Position        float64
	Velocity        float64
	DesiredPosition float64
	DesiredVelocity float64
	CommandedEffort float64
}

// Controller is driven by a Loop. Init is called once with the joints it controls, Starting
// when the loop starts and Update on every tick with the time elapsed since the previous one.
type Controller interface {
	Init(joints []JointHandle) error
	Starting(now time.Time)
	Update(now time.Time, period time.Duration)
}
