package main

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/taskik/components/arm/fake"
	"go.viam.com/taskik/config"
	"go.viam.com/taskik/control"
	"go.viam.com/taskik/controllers/multitask"
	"go.viam.com/taskik/logging"
	"go.viam.com/taskik/utils"
)

const defaultDuration = 10 * time.Second

// builtinConfig drives the embedded arm when no config file is given.
const builtinConfig = `{"default_gains": {"p": 100, "d": 20}}`

// defaultInitial keeps the embedded arm away from its stretched out singularity.
var defaultInitial = []float64{0, 0.5, 0, -1.2, 0, 0.7, 0}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromReader("", strings.NewReader(builtinConfig))
	}
	return config.Read(path)
}

// simulation steps the fake arm after every controller update.
type simulation struct {
	*multitask.Controller
	arm *fake.Arm
}

func (s *simulation) Update(now time.Time, period time.Duration) {
	s.Controller.Update(now, period)
	s.arm.Step(period)
}

// lastActive keeps the telemetry of the last tick that solved a task list.
type lastActive struct {
	mu  sync.Mutex
	tel multitask.Telemetry
}

func (l *lastActive) Publish(tel multitask.Telemetry) {
	if len(tel.Errors) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tel = tel
}

func (l *lastActive) get() multitask.Telemetry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tel
}

type runOptions struct {
	cfg      *config.Config
	tasks    []byte
	duration time.Duration
	initial  []float64
	clk      clock.Clock
}

type runResult struct {
	status    multitask.Status
	telemetry multitask.Telemetry
	elapsed   time.Duration
	ticks     int64
}

func runAction(c *cli.Context, logger logging.Logger) error {
	cfg, err := loadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	if !c.Bool(flagDebug) {
		logger.SetLevel(cfg.LogLevel)
	}
	tasks, err := utils.ReadFileOrStdin(c.String(flagTasks), c.App.Reader)
	if err != nil {
		return err
	}
	res, err := run(c.Context, runOptions{
		cfg:      cfg,
		tasks:    tasks,
		duration: c.Duration(flagDuration),
		initial:  c.Float64Slice(flagInitial),
		clk:      clock.New(),
	}, logger)
	if err != nil {
		return err
	}
	printSummary(c.App.Writer, res)
	return nil
}

func run(ctx context.Context, opts runOptions, logger logging.Logger) (*runResult, error) {
	cfg := opts.cfg
	model, err := cfg.LoadModel()
	if err != nil {
		return nil, err
	}
	names := model.JointNames()
	ctrl, err := multitask.NewController(model, multitask.Config{
		Solver: cfg.SolverConfig(),
		Gains:  cfg.GainsFor(names),
	}, logger.Sublogger("controller"))
	if err != nil {
		return nil, err
	}
	arm, err := fake.NewArm(names, cfg.Simulation, logger.Sublogger("arm"))
	if err != nil {
		return nil, err
	}
	initial := opts.initial
	if len(initial) == 0 && len(names) == len(defaultInitial) {
		initial = defaultInitial
	}
	if len(initial) > 0 {
		if err := arm.SetPositions(initial); err != nil {
			return nil, errors.Wrap(err, "initial joint positions")
		}
	}
	if err := ctrl.Init(arm.Joints()); err != nil {
		return nil, err
	}
	latest := &lastActive{}
	ctrl.AddTelemetrySink(latest)

	var payload map[string]interface{}
	if err := json.Unmarshal(opts.tasks, &payload); err != nil {
		return nil, errors.Wrap(err, "cannot parse task list")
	}

	loop, err := control.NewLoop(logger.Sublogger("loop"), cfg.LoopConfig(), &simulation{Controller: ctrl, arm: arm}, opts.clk)
	if err != nil {
		return nil, err
	}
	// Starting drops any task list, so configure once the loop runs
	if err := loop.Start(ctx); err != nil {
		return nil, err
	}
	defer loop.Stop()
	if _, err := ctrl.DoCommand(ctx, map[string]interface{}{multitask.CommandConfiguration: payload}); err != nil {
		return nil, err
	}

	start := opts.clk.Now()
	deadline := opts.clk.After(opts.duration)
	poll := opts.clk.Ticker(cfg.LoopConfig().Period())
	defer poll.Stop()
wait:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			logger.Warn("duration elapsed with pending tasks")
			break wait
		case <-poll.C:
			if !ctrl.Status().Active {
				break wait
			}
		}
	}
	loop.Stop()
	return &runResult{
		status:    ctrl.Status(),
		telemetry: latest.get(),
		elapsed:   opts.clk.Since(start),
		ticks:     loop.Ticks(),
	}, nil
}
