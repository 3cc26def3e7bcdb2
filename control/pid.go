package control

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// PIDConfig holds the gains of one joint controller.
type PIDConfig struct {
	P float64 `json:"p"`
	I float64 `json:"i"`
	D float64 `json:"d"`
	// IClamp bounds the magnitude of the integral term. Zero leaves it unbounded.
	IClamp float64 `json:"i_clamp"`
}

// Validate ensures the gains are usable.
func (cfg PIDConfig) Validate() error {
	if cfg.IClamp < 0 {
		return errors.Errorf("i_clamp must be non-negative, got %v", cfg.IClamp)
	}
	if cfg.P == 0 && cfg.I == 0 && cfg.D == 0 {
		return errors.New("pid should have at least one of p, i or d set")
	}
	return nil
}

// PID is a proportional integral derivative controller whose derivative term is given directly as
// the velocity error.
type PID struct {
	mu       sync.Mutex
	cfg      PIDConfig
	integral float64
}

// NewPID creates a controller with the given gains.
func NewPID(cfg PIDConfig) (*PID, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PID{cfg: cfg}, nil
}

// Config returns the gains.
func (p *PID) Config() PIDConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// ComputeCommand returns P·e + i + D·ė where the integral accumulates I·e·dt, clamped to IClamp.
// A non-positive dt skips the integral update.
func (p *PID) ComputeCommand(errPos, errVel float64, dt time.Duration) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if dtS := dt.Seconds(); dtS > 0 {
		p.integral += p.cfg.I * errPos * dtS
		if p.cfg.IClamp > 0 {
			p.integral = clamp(p.integral, -p.cfg.IClamp, p.cfg.IClamp)
		}
	}
	return p.cfg.P*errPos + p.integral + p.cfg.D*errVel
}

// Integral returns the accumulated integral term.
func (p *PID) Integral() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.integral
}

// Reset clears the integral.
func (p *PID) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.integral = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
