// Package multitask implements a joint effort controller that tracks an ordered list of Cartesian
// tasks. Each tick solves prioritized inverse kinematics for a joint velocity, integrates it into a
// desired trajectory while the task list is active, and closes the loop on every joint with a PID.
package multitask

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/taskik/control"
	"go.viam.com/taskik/logging"
	"go.viam.com/taskik/motionplan/ik"
	"go.viam.com/taskik/referenceframe"
	"go.viam.com/taskik/spatialmath"
)

// Chain is the kinematics the controller solves against.
type Chain interface {
	ik.Chain
	JointNames() []string
}

// Config holds the solver tunables and the gains of every joint, keyed by joint name.
type Config struct {
	Solver ik.SolverConfig
	Gains  map[string]control.PIDConfig
}

// Marker is a visualization hint: the measured position of a task's link.
type Marker struct {
	ID        int64
	Namespace string
	Point     r3.Vector
}

// Telemetry is emitted once per tick. Errors holds the six dimensional error of every active task in
// priority order and is empty while idle.
type Telemetry struct {
	Errors  []float64
	Markers []Marker
	Tick    int64
}

// TelemetrySink receives the telemetry of every tick. Publish is called from the control loop and
// must not block.
type TelemetrySink interface {
	Publish(Telemetry)
}

// TelemetrySinkFunc adapts a function to a TelemetrySink.
type TelemetrySinkFunc func(Telemetry)

// Publish calls f.
func (f TelemetrySinkFunc) Publish(t Telemetry) {
	f(t)
}

// solverState is the task list being tracked. It is replaced as a whole on every accepted configuration.
type solverState struct {
	links    []int
	tasks    []*ik.Task
	active   bool
	markerID int64
}

// Controller tracks a task list on a serial chain.
type Controller struct {
	logger logging.Logger
	chain  Chain
	solver *ik.Solver
	names  []string
	pids   []*control.PID

	// touched only by the tick
	handles []control.JointHandle
	joints  []control.JointState
	tick    int64

	stateMu sync.Mutex
	state   *solverState

	sinksMu sync.Mutex
	sinks   []TelemetrySink
}

// NewController builds a controller for chain. Every joint of the chain needs gains.
func NewController(chain Chain, cfg Config, logger logging.Logger) (*Controller, error) {
	if chain == nil {
		return nil, errors.New("controller requires a chain")
	}
	solver, err := ik.NewSolver(chain, cfg.Solver, logger.Sublogger("ik"))
	if err != nil {
		return nil, err
	}
	names := chain.JointNames()
	pids := make([]*control.PID, 0, len(names))
	for _, name := range names {
		gains, ok := cfg.Gains[name]
		if !ok {
			multierr.AppendInto(&err, errors.Errorf("no gains for joint %q", name))
			continue
		}
		pid, pidErr := control.NewPID(gains)
		if pidErr != nil {
			multierr.AppendInto(&err, errors.Wrapf(pidErr, "joint %q", name))
			continue
		}
		pids = append(pids, pid)
	}
	if err != nil {
		return nil, err
	}
	for _, extra := range lo.Without(lo.Keys(cfg.Gains), names...) {
		logger.Warnw("gains given for a joint outside the chain", "joint", extra)
	}
	joints := make([]control.JointState, len(names))
	for i, name := range names {
		joints[i].Name = name
	}
	return &Controller{
		logger: logger,
		chain:  chain,
		solver: solver,
		names:  names,
		pids:   pids,
		joints: joints,
		state:  &solverState{},
	}, nil
}

// NumJoints returns the number of joints controlled.
func (c *Controller) NumJoints() int {
	return len(c.names)
}

// Init binds the joint handles, which may come in any order but must cover every joint of the chain.
func (c *Controller) Init(handles []control.JointHandle) error {
	byName := lo.KeyBy(handles, func(h control.JointHandle) string { return h.Name() })
	ordered := make([]control.JointHandle, 0, len(c.names))
	var err error
	for _, name := range c.names {
		h, ok := byName[name]
		if !ok {
			multierr.AppendInto(&err, errors.Errorf("no handle for joint %q", name))
			continue
		}
		ordered = append(ordered, h)
	}
	if err != nil {
		return err
	}
	c.handles = ordered
	c.logger.Infow("controller initialized", "joints", c.names)
	return nil
}

// Starting holds the measured position, resets every PID and idles the controller.
func (c *Controller) Starting(now time.Time) {
	for i, h := range c.handles {
		c.joints[i].Position = h.Position()
		c.joints[i].Velocity = h.Velocity()
	}
	c.Reset()
}

// Reset sets the desired state to the last measured state, resets every PID and drops the task list.
func (c *Controller) Reset() {
	for i := range c.joints {
		c.joints[i].DesiredPosition = c.joints[i].Position
		c.joints[i].DesiredVelocity = 0
	}
	for _, pid := range c.pids {
		pid.Reset()
	}
	c.stateMu.Lock()
	c.state = &solverState{}
	c.stateMu.Unlock()
}

// Update reads the joint handles, runs one Step, commands the joints and publishes telemetry.
func (c *Controller) Update(now time.Time, period time.Duration) {
	positions := make([]float64, len(c.handles))
	velocities := make([]float64, len(c.handles))
	for i, h := range c.handles {
		positions[i] = h.Position()
		velocities[i] = h.Velocity()
	}
	commands, telemetry := c.Step(positions, velocities, period)
	for i, h := range c.handles {
		h.SetCommand(commands[i])
	}
	c.publish(telemetry)
}

// Step runs one tick on the measured joint state and returns the effort of every joint. While a task
// list is active the solved joint velocity is integrated into the desired trajectory; otherwise the
// desired state is held. A command is always produced. A measurement that does not cover every joint
// is dropped and the previous one is used for the whole tick.
func (c *Controller) Step(positions, velocities []float64, dt time.Duration) ([]float64, Telemetry) {
	if len(positions) != len(c.joints) || len(velocities) != len(c.joints) {
		c.logger.Warnw("ignoring malformed joint measurement",
			"joints", len(c.joints), "positions", len(positions), "velocities", len(velocities))
	} else {
		for i := range c.joints {
			c.joints[i].Position = positions[i]
			c.joints[i].Velocity = velocities[i]
		}
	}
	telemetry := Telemetry{Tick: c.tick, Errors: []float64{}}

	c.stateMu.Lock()
	st := c.state
	if st.active {
		c.solve(st, dt, &telemetry)
	}
	st.markerID++
	c.stateMu.Unlock()

	commands := make([]float64, len(c.joints))
	for i := range c.joints {
		j := &c.joints[i]
		j.CommandedEffort = c.pids[i].ComputeCommand(j.DesiredPosition-j.Position, j.DesiredVelocity-j.Velocity, dt)
		commands[i] = j.CommandedEffort
	}
	c.tick++
	return commands, telemetry
}

// solve must be called with stateMu held.
func (c *Controller) solve(st *solverState, dt time.Duration, telemetry *Telemetry) {
	q := referenceframe.FloatsToInputs(lo.Map(c.joints, func(j control.JointState, _ int) float64 { return j.Position }))
	sol, err := c.solver.Solve(q, st.tasks)
	if err != nil {
		c.logger.Errorw("cannot solve task list, holding desired state", "error", err)
		return
	}
	telemetry.Errors = lo.Flatten(lo.Map(sol.Errors, func(e [6]float64, _ int) []float64 { return e[:] }))
	telemetry.Markers = lo.Map(sol.Poses, func(p spatialmath.Pose, i int) Marker {
		return Marker{ID: st.markerID, Namespace: MarkerNamespace(st.tasks[i].Link), Point: p.Point()}
	})
	if sol.Converged {
		st.active = false
		c.logger.Infow("task list converged", "tasks", len(st.tasks))
	}
	if err := control.Integrate(c.joints, sol.Velocities, dt.Seconds()); err != nil {
		c.logger.Errorw("cannot integrate joint velocities", "error", err)
	}
}

// MarkerNamespace labels the link of a task: "end_effector" or "link_<id>".
func MarkerNamespace(link ik.LinkID) string {
	if link == ik.EndEffector {
		return "end_effector"
	}
	return fmt.Sprintf("link_%d", link)
}

// Configure validates a task configuration and, if it is accepted, replaces the active task list with
// fresh pending tasks and activates the controller. A rejected request leaves everything unchanged and
// returns a *RequestError.
func (c *Controller) Configure(ctx context.Context, tc TaskConfiguration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tc.Validate(c.NumJoints()); err != nil {
		c.logger.Warnw("rejecting task configuration", "error", err)
		return errors.Wrap(err, "command_configuration")
	}
	next := &solverState{
		links:  append([]int(nil), tc.Links...),
		tasks:  tc.newTasks(),
		active: true,
	}
	c.stateMu.Lock()
	c.state = next
	c.stateMu.Unlock()
	c.logger.Infow("accepted task configuration", "tasks", len(next.tasks), "links", next.links)
	return nil
}

// Status is a snapshot of the active task list.
type Status struct {
	Active   bool   `json:"active"`
	Links    []int  `json:"links"`
	OnTarget []bool `json:"on_target"`
}

// Status returns a snapshot of the active task list.
func (c *Controller) Status() Status {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return Status{
		Active:   c.state.active,
		Links:    append([]int{}, c.state.links...),
		OnTarget: lo.Map(c.state.tasks, func(t *ik.Task, _ int) bool { return t.OnTarget() }),
	}
}

// AddTelemetrySink registers a sink for per tick telemetry.
func (c *Controller) AddTelemetrySink(sink TelemetrySink) {
	c.sinksMu.Lock()
	defer c.sinksMu.Unlock()
	c.sinks = append(c.sinks, sink)
}

func (c *Controller) publish(telemetry Telemetry) {
	c.sinksMu.Lock()
	sinks := c.sinks
	c.sinksMu.Unlock()
	for _, s := range sinks {
		s.Publish(telemetry)
	}
}

// JointStates returns a copy of the joint states as of the last tick. It must not be called while a
// loop is driving the controller.
func (c *Controller) JointStates() []control.JointState {
	return append([]control.JointState(nil), c.joints...)
}
