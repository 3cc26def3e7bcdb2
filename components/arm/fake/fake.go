// Package fake implements a simulated arm whose joints respond to effort commands.
package fake

import (
	_ "embed"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/taskik/control"
	"go.viam.com/taskik/logging"
	"go.viam.com/taskik/referenceframe"
)

//go:embed lwr.urdf
var lwrURDF []byte

// Root and tip links of the embedded kinematics.
const (
	DefaultRoot = "lwr_base_link"
	DefaultTip  = "lwr_ee_link"
)

// URDF returns the embedded 7 joint robot description.
func URDF() []byte {
	return append([]byte(nil), lwrURDF...)
}

// Model parses the embedded robot description from DefaultRoot to DefaultTip.
func Model() (*referenceframe.SimpleModel, error) {
	return referenceframe.ParseURDF(lwrURDF, DefaultRoot, DefaultTip)
}

// Config is the simulated inertia and viscous friction of every joint.
type Config struct {
	Mass    float64 `json:"mass"`
	Damping float64 `json:"damping"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate() error {
	if conf.Mass <= 0 {
		return errors.Errorf("joint mass must be positive, got %v", conf.Mass)
	}
	if conf.Damping < 0 {
		return errors.Errorf("joint damping must be non-negative, got %v", conf.Damping)
	}
	return nil
}

// Arm is a fake arm. Each joint integrates q̈ = (τ − b·q̇)/m on Step.
type Arm struct {
	logger logging.Logger
	cfg    Config

	mu      sync.Mutex
	names   []string
	pos     []float64
	vel     []float64
	efforts []float64
}

// NewArm returns a fake arm at rest at the zero position with one joint per name.
func NewArm(names []string, cfg Config, logger logging.Logger) (*Arm, error) {
	if len(names) == 0 {
		return nil, errors.New("fake arm built with zero joints")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("fake")
	}
	n := len(names)
	return &Arm{
		logger:  logger,
		cfg:     cfg,
		names:   append([]string(nil), names...),
		pos:     make([]float64, n),
		vel:     make([]float64, n),
		efforts: make([]float64, n),
	}, nil
}

// Joints returns a handle per joint in chain order.
func (a *Arm) Joints() []control.JointHandle {
	handles := make([]control.JointHandle, len(a.names))
	for i := range a.names {
		handles[i] = &Joint{arm: a, idx: i}
	}
	return handles
}

// SetPositions teleports the joints and stops them.
func (a *Arm) SetPositions(q []float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(q) != len(a.pos) {
		return referenceframe.NewIncorrectDoFError(len(q), len(a.pos))
	}
	copy(a.pos, q)
	for i := range a.vel {
		a.vel[i] = 0
	}
	a.logger.Debugw("arm reset", "positions", q)
	return nil
}

// Positions returns the current joint positions.
func (a *Arm) Positions() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.pos...)
}

// Efforts returns the last commanded efforts.
func (a *Arm) Efforts() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.efforts...)
}

// Step advances the simulation by dt with semi-implicit Euler.
func (a *Arm) Step(dt time.Duration) {
	dtS := dt.Seconds()
	if dtS <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.pos {
		acc := (a.efforts[i] - a.cfg.Damping*a.vel[i]) / a.cfg.Mass
		a.vel[i] += acc * dtS
		a.pos[i] += a.vel[i] * dtS
	}
}

// Joint is the handle of one joint of a fake arm.
type Joint struct {
	arm *Arm
	idx int
}

// Name returns the joint name.
func (j *Joint) Name() string {
	return j.arm.names[j.idx]
}

// Position returns the joint position.
func (j *Joint) Position() float64 {
	j.arm.mu.Lock()
	defer j.arm.mu.Unlock()
	return j.arm.pos[j.idx]
}

// Velocity returns the joint velocity.
func (j *Joint) Velocity() float64 {
	j.arm.mu.Lock()
	defer j.arm.mu.Unlock()
	return j.arm.vel[j.idx]
}

// SetCommand stores the effort applied on the next Step.
func (j *Joint) SetCommand(effort float64) {
	j.arm.mu.Lock()
	defer j.arm.mu.Unlock()
	j.arm.efforts[j.idx] = effort
}
