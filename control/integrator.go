package control

import (
	"github.com/pkg/errors"
)

// Integrate advances the desired trajectory by one explicit Euler step: the desired position moves by
// qdot·dt and the desired velocity becomes qdot.
func Integrate(joints []JointState, qdot []float64, dt float64) error {
	if len(joints) != len(qdot) {
		return errors.Errorf("cannot integrate %d velocities into %d joints", len(qdot), len(joints))
	}
	for i := range joints {
		joints[i].DesiredPosition += qdot[i] * dt
		joints[i].DesiredVelocity = qdot[i]
	}
	return nil
}
