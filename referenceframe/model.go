package referenceframe

import (
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	spatial "go.viam.com/taskik/spatialmath"
)

// LinkID identifies a link of a serial chain. Links are numbered from 1 at the child of the first
// movable joint; EndEffector addresses the tip of the chain.
type LinkID int

// EndEffector is the LinkID of the tip of the chain.
const EndEffector LinkID = -1

// SimpleModel is a serial chain of frames ordered from base to tip. Static frames carry the fixed
// offsets between joints, every other frame carries exactly one degree of freedom.
type SimpleModel struct {
	name string
	// OrdTransforms is the list of transforms ordered from base to end effector
	OrdTransforms []Frame
	jointNames    []string
	lock          sync.RWMutex
	limits        []Limit
}

// NewSimpleModel constructs a new model from an ordered list of frames.
func NewSimpleModel(name string, frames []Frame) (*SimpleModel, error) {
	m := &SimpleModel{name: name, OrdTransforms: frames}
	for _, f := range frames {
		switch len(f.DoF()) {
		case 0:
		case 1:
			if _, ok := f.(jointFrame); !ok {
				return nil, errors.Errorf("frame %q is not a single axis joint", f.Name())
			}
			m.jointNames = append(m.jointNames, f.Name())
		default:
			return nil, errors.Errorf("frame %q has %d degrees of freedom, only single axis joints are supported", f.Name(), len(f.DoF()))
		}
	}
	if len(m.jointNames) == 0 {
		return nil, ErrEmptyChain
	}
	return m, nil
}

// Name returns the name of this model.
func (m *SimpleModel) Name() string {
	return m.name
}

// NumJoints returns the number of movable joints of the chain.
func (m *SimpleModel) NumJoints() int {
	return len(m.jointNames)
}

// JointNames returns the names of the movable joints in chain order.
func (m *SimpleModel) JointNames() []string {
	return append([]string(nil), m.jointNames...)
}

// DoF returns the limits of every movable joint.
func (m *SimpleModel) DoF() []Limit {
	m.lock.RLock()
	if m.limits != nil {
		defer m.lock.RUnlock()
		return m.limits
	}
	m.lock.RUnlock()

	limits := make([]Limit, 0, len(m.jointNames))
	for _, f := range m.OrdTransforms {
		limits = append(limits, f.DoF()...)
	}
	m.lock.Lock()
	m.limits = limits
	m.lock.Unlock()
	return limits
}

// Transform returns the pose of the end effector relative to the chain base.
func (m *SimpleModel) Transform(inputs []Input) (spatial.Pose, error) {
	return m.LinkPose(inputs, EndEffector)
}

// ValidateLink returns an error if link does not name a link of this chain.
func (m *SimpleModel) ValidateLink(link LinkID) error {
	if link == EndEffector || (link >= 1 && int(link) <= m.NumJoints()) {
		return nil
	}
	return NewLinkOutOfRangeError(link, m.NumJoints())
}

// LinkPose returns the pose of a link relative to the chain base. Link L includes the motion of the
// L-th movable joint but not the origin offset of the joint that follows it.
func (m *SimpleModel) LinkPose(inputs []Input, link LinkID) (spatial.Pose, error) {
	return m.compose(inputs, link)
}

// Jacobian returns the 6xN geometric Jacobian of a link, linear rows first. The columns of joints
// beyond the link are zero.
func (m *SimpleModel) Jacobian(inputs []Input, link LinkID) (*mat.Dense, error) {
	tip, err := m.compose(inputs, link)
	if err != nil {
		return nil, err
	}
	p := tip.Point()
	jac := mat.NewDense(6, m.NumJoints(), nil)
	col := 0
	err = m.walk(inputs, link, func(j jointFrame, before, _ spatial.Pose) {
		z := before.Orientation().RotationMatrix().Mul(j.axis())
		if j.revolute() {
			lin := z.Cross(p.Sub(before.Point()))
			setColumn(jac, col, lin, z)
		} else {
			setColumn(jac, col, z, r3.Vector{})
		}
		col++
	})
	if err != nil {
		return nil, err
	}
	return jac, nil
}

func setColumn(jac *mat.Dense, col int, lin, ang r3.Vector) {
	jac.Set(0, col, lin.X)
	jac.Set(1, col, lin.Y)
	jac.Set(2, col, lin.Z)
	jac.Set(3, col, ang.X)
	jac.Set(4, col, ang.Y)
	jac.Set(5, col, ang.Z)
}

func (m *SimpleModel) compose(inputs []Input, link LinkID) (spatial.Pose, error) {
	if link == EndEffector {
		if len(inputs) != m.NumJoints() {
			return nil, NewIncorrectDoFError(len(inputs), m.NumJoints())
		}
		return m.fullTransform(inputs)
	}
	pose := spatial.NewZeroPose()
	if err := m.walk(inputs, link, func(_ jointFrame, _, after spatial.Pose) { pose = after }); err != nil {
		return nil, err
	}
	return pose, nil
}

func (m *SimpleModel) fullTransform(inputs []Input) (spatial.Pose, error) {
	composed := spatial.NewZeroPose()
	posIdx := 0
	for _, f := range m.OrdTransforms {
		dof := len(f.DoF()) + posIdx
		pose, err := f.Transform(inputs[posIdx:dof])
		if err != nil {
			return nil, err
		}
		posIdx = dof
		composed = spatial.Compose(composed, pose)
	}
	return composed, nil
}

// walk composes the chain from the base and calls fn for every movable joint up to and including
// the last joint that moves link, with the pose before and after the joint motion.
func (m *SimpleModel) walk(inputs []Input, link LinkID, fn func(j jointFrame, before, after spatial.Pose)) error {
	if len(inputs) != m.NumJoints() {
		return NewIncorrectDoFError(len(inputs), m.NumJoints())
	}
	if err := m.ValidateLink(link); err != nil {
		return err
	}
	last := m.NumJoints()
	if link != EndEffector {
		last = int(link)
	}
	composed := spatial.NewZeroPose()
	posIdx := 0
	for _, f := range m.OrdTransforms {
		if posIdx == last {
			break
		}
		dof := len(f.DoF()) + posIdx
		pose, err := f.Transform(inputs[posIdx:dof])
		if err != nil {
			return err
		}
		posIdx = dof
		next := spatial.Compose(composed, pose)
		if j, ok := f.(jointFrame); ok {
			fn(j, composed, next)
		}
		composed = next
	}
	return nil
}
