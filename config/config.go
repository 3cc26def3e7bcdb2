// Package config reads the controller configuration file.
package config

import (
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/taskik/components/arm/fake"
	"go.viam.com/taskik/control"
	"go.viam.com/taskik/logging"
	"go.viam.com/taskik/motionplan/ik"
	"go.viam.com/taskik/referenceframe"
)

// Defaults applied to unset fields.
const (
	DefaultFrequency = 100.
	DefaultMass      = 1.
	DefaultFriction  = 0.5
)

// Config describes the chain, the loop rate, the solver and the gains of every joint.
type Config struct {
	// RobotDescription is the path of a URDF file. Empty selects the built in 7 joint arm.
	RobotDescription string  `json:"robot_description"`
	RootName         string  `json:"root_name"`
	TipName          string  `json:"tip_name"`
	FrequencyHz      float64 `json:"frequency_hz"`
	// Damping of the velocity solve. Nil selects the default, otherwise it must be positive.
	Damping              *float64                     `json:"damping,omitempty"`
	PositionTolerance    float64                      `json:"position_tolerance"`
	OrientationTolerance float64                      `json:"orientation_tolerance"`
	Gains                map[string]control.PIDConfig `json:"gains"`
	// DefaultGains apply to every joint without an entry in Gains.
	DefaultGains *control.PIDConfig `json:"default_gains,omitempty"`
	Simulation   fake.Config        `json:"simulation"`
	LogLevel     logging.Level      `json:"log_level"`

	// ConfigFilePath is the file this config was read from, if any.
	ConfigFilePath string `json:"-"`
}

func (c *Config) applyDefaults() {
	if c.FrequencyHz == 0 {
		c.FrequencyHz = DefaultFrequency
	}
	if c.Damping == nil {
		d := ik.DefaultDamping
		c.Damping = &d
	}
	if c.PositionTolerance == 0 {
		c.PositionTolerance = ik.DefaultTolerance
	}
	if c.OrientationTolerance == 0 {
		c.OrientationTolerance = ik.DefaultTolerance
	}
	if c.RobotDescription == "" {
		if c.RootName == "" {
			c.RootName = fake.DefaultRoot
		}
		if c.TipName == "" {
			c.TipName = fake.DefaultTip
		}
	} else if c.ConfigFilePath != "" && !filepath.IsAbs(c.RobotDescription) {
		c.RobotDescription = filepath.Join(filepath.Dir(c.ConfigFilePath), c.RobotDescription)
	}
	if c.Simulation.Mass == 0 {
		c.Simulation.Mass = DefaultMass
	}
	if c.Simulation.Damping == 0 {
		c.Simulation.Damping = DefaultFriction
	}
}

// Validate returns every problem found in the config.
func (c *Config) Validate() error {
	var err error
	if c.RobotDescription != "" && (c.RootName == "" || c.TipName == "") {
		multierr.AppendInto(&err, errors.New("root_name and tip_name are required with a robot_description"))
	}
	multierr.AppendInto(&err, c.LoopConfig().Validate())
	if c.Damping != nil && !(*c.Damping > 0) {
		multierr.AppendInto(&err, errors.Errorf("damping must be positive, got %v", *c.Damping))
	}
	if c.PositionTolerance < 0 {
		multierr.AppendInto(&err, errors.Errorf("position_tolerance must be positive, got %v", c.PositionTolerance))
	}
	if c.OrientationTolerance < 0 {
		multierr.AppendInto(&err, errors.Errorf("orientation_tolerance must be positive, got %v", c.OrientationTolerance))
	}
	for name, gains := range c.Gains {
		if gainErr := gains.Validate(); gainErr != nil {
			multierr.AppendInto(&err, errors.Wrapf(gainErr, "gains for %q", name))
		}
	}
	if c.DefaultGains != nil {
		if gainErr := c.DefaultGains.Validate(); gainErr != nil {
			multierr.AppendInto(&err, errors.Wrap(gainErr, "default_gains"))
		}
	}
	multierr.AppendInto(&err, errors.Wrap(c.Simulation.Validate(), "simulation"))
	return err
}

// LoopConfig returns the control loop config.
func (c *Config) LoopConfig() control.LoopConfig {
	return control.LoopConfig{Frequency: c.FrequencyHz}
}

// SolverConfig returns the solver config.
func (c *Config) SolverConfig() ik.SolverConfig {
	cfg := ik.NewSolverConfig()
	if c.Damping != nil {
		cfg.Damping = *c.Damping
	}
	if c.PositionTolerance > 0 {
		cfg.Tolerance.Position = c.PositionTolerance
	}
	if c.OrientationTolerance > 0 {
		cfg.Tolerance.Orientation = c.OrientationTolerance
	}
	return cfg
}

// GainsFor returns the gains of every named joint, falling back to DefaultGains.
func (c *Config) GainsFor(names []string) map[string]control.PIDConfig {
	gains := make(map[string]control.PIDConfig, len(names))
	for name, g := range c.Gains {
		gains[name] = g
	}
	if c.DefaultGains != nil {
		for _, name := range names {
			if _, ok := gains[name]; !ok {
				gains[name] = *c.DefaultGains
			}
		}
	}
	return gains
}

// LoadModel builds the kinematic chain from root to tip.
func (c *Config) LoadModel() (*referenceframe.SimpleModel, error) {
	if c.RobotDescription == "" {
		return referenceframe.ParseURDF(fake.URDF(), c.RootName, c.TipName)
	}
	return referenceframe.ParseURDFFile(c.RobotDescription, c.RootName, c.TipName)
}
