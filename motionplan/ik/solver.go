package ik

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/taskik/logging"
	"go.viam.com/taskik/referenceframe"
	"go.viam.com/taskik/spatialmath"
)

// Chain provides the kinematics of a serial chain: link poses and geometric Jacobians in the base frame.
type Chain interface {
	NumJoints() int
	LinkPose(inputs []referenceframe.Input, link LinkID) (spatialmath.Pose, error)
	Jacobian(inputs []referenceframe.Input, link LinkID) (*mat.Dense, error)
}

// SolverConfig holds the tunables of a Solver.
type SolverConfig struct {
	// Damping is λ of the damped pseudo-inverse used for the velocity update. It must be positive so
	// the update stays bounded near singular configurations.
	Damping   float64
	Tolerance Tolerance
	// TrackRanks records the projector rank after every task, for diagnostics.
	TrackRanks bool
}

// NewSolverConfig returns a config with the default damping and tolerance.
func NewSolverConfig() SolverConfig {
	return SolverConfig{Damping: DefaultDamping, Tolerance: NewTolerance()}
}

// Solution is the result of one solve pass.
type Solution struct {
	// Velocities is the joint velocity command.
	Velocities []float64
	// Errors holds the pose error of each task, linear part first.
	Errors [][6]float64
	// Poses holds the measured pose of each task's link.
	Poses []spatialmath.Pose
	// Reached lists the indices of the tasks that latched on target during this pass.
	Reached []int
	// Converged is set when the lowest priority task latched during this pass.
	Converged bool
	// ProjectorRanks is the rank of the identity followed by the rank after each task, when tracked.
	ProjectorRanks []int
}

// Solver computes one joint velocity command for an ordered list of tasks, index 0 having the highest
// priority. A Solver reuses its projector and must not be used from more than one goroutine at a time.
type Solver struct {
	chain     Chain
	cfg       SolverConfig
	logger    logging.Logger
	projector *Projector
}

// NewSolver creates a solver for the given chain.
func NewSolver(chain Chain, cfg SolverConfig, logger logging.Logger) (*Solver, error) {
	if chain == nil {
		return nil, errors.New("solver requires a chain")
	}
	if chain.NumJoints() < 1 {
		return nil, referenceframe.ErrEmptyChain
	}
	if !(cfg.Damping > 0) || math.IsInf(cfg.Damping, 1) {
		return nil, errors.Errorf("damping must be positive and finite, got %v", cfg.Damping)
	}
	if logger == nil {
		logger = logging.NewBlankLogger("ik")
	}
	return &Solver{
		chain:     chain,
		cfg:       cfg,
		logger:    logger,
		projector: NewProjector(chain.NumJoints()),
	}, nil
}

// Config returns the solver config.
func (s *Solver) Config() SolverConfig {
	return s.cfg
}

// Solve runs one pass over tasks at joint positions q. For each task i with Jacobian J and error e:
//
//	J* = J·P
//	qdot += dpinv(J*)·(e − J·qdot)
//	P -= pinv(J*)·J*
//
// Tasks are latched on target as a side effect.
func (s *Solver) Solve(q []referenceframe.Input, tasks []*Task) (*Solution, error) {
	n := s.chain.NumJoints()
	if len(q) != n {
		return nil, referenceframe.NewIncorrectDoFError(len(q), n)
	}
	s.projector.Reset()
	qdot := mat.NewVecDense(n, nil)
	sol := &Solution{
		Errors: make([][6]float64, 0, len(tasks)),
		Poses:  make([]spatialmath.Pose, 0, len(tasks)),
	}
	if s.cfg.TrackRanks {
		sol.ProjectorRanks = append(sol.ProjectorRanks, s.projector.Rank())
	}

	for i, task := range tasks {
		jac, err := s.chain.Jacobian(q, task.Link)
		if err != nil {
			return nil, errors.Wrapf(err, "task %d", i)
		}
		pose, err := s.chain.LinkPose(q, task.Link)
		if err != nil {
			return nil, errors.Wrapf(err, "task %d", i)
		}
		sol.Poses = append(sol.Poses, pose)

		var taskErr [6]float64
		copy(taskErr[:], spatialmath.PoseDelta(pose, task.Goal).Vector())
		sol.Errors = append(sol.Errors, taskErr)

		jStar := s.projector.Project(jac)

		// residual of this task left by the higher priority tasks
		residual := mat.NewVecDense(6, nil)
		residual.MulVec(jac, qdot)
		residual.SubVec(mat.NewVecDense(6, taskErr[:]), residual)

		var step mat.VecDense
		step.MulVec(DampedPseudoInverse(jStar, s.cfg.Damping), residual)
		qdot.AddVec(qdot, &step)

		if task.checkOnTarget(pose, s.cfg.Tolerance) {
			sol.Reached = append(sol.Reached, i)
			s.logger.Infow("task on target", "index", i, "link", int(task.Link))
			if i == len(tasks)-1 {
				sol.Converged = true
			}
		}

		s.projector.Fold(jStar)
		if s.cfg.TrackRanks {
			sol.ProjectorRanks = append(sol.ProjectorRanks, s.projector.Rank())
		}
	}

	sol.Velocities = make([]float64, n)
	copy(sol.Velocities, qdot.RawVector().Data)
	return sol, nil
}
