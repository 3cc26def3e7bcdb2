package referenceframe

import (
	"github.com/pkg/errors"
)

// ErrNoModelInformation is used when there is no model information.
var ErrNoModelInformation = errors.New("no model information")

// ErrEmptyChain is returned when a kinematic chain has no movable joints.
var ErrEmptyChain = errors.New("kinematic chain has no movable joints")

// NewIncorrectDoFError returns an error indicating that the length of an input slice does not match the DoF of a frame.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Errorf("number of given inputs %d does not match number of degrees of freedom %d", actual, expected)
}

// NewLinkOutOfRangeError returns an error indicating that a link identifier does not name a link of the chain.
func NewLinkOutOfRangeError(link LinkID, numJoints int) error {
	return errors.Errorf("link index %d must be within 1 and %d (%d is end-effector)", link, numJoints, EndEffector)
}

// NewUnknownLinkError returns an error indicating that a named URDF link does not exist.
func NewUnknownLinkError(name string) error {
	return errors.Errorf("link %q not found in robot description", name)
}

// NewBrokenChainError returns an error indicating that no chain of joints connects two links.
func NewBrokenChainError(root, tip string) error {
	return errors.Errorf("no kinematic chain from %q to %q", root, tip)
}

// NewUnsupportedJointTypeError returns an error indicating that a given joint type is not supported.
func NewUnsupportedJointTypeError(jointType string) error {
	return errors.Errorf("unsupported joint type detected: %v", jointType)
}
