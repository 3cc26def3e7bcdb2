package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"go.viam.com/taskik/logging"
)

// MaxFrequency is the highest tick rate a Loop accepts, in Hz.
const MaxFrequency = 1000.

// LoopConfig configures a Loop.
type LoopConfig struct {
	Frequency float64 `json:"frequency_hz"`
}

// Validate ensures the frequency is in (0, MaxFrequency].
func (cfg LoopConfig) Validate() error {
	if cfg.Frequency <= 0 || cfg.Frequency > MaxFrequency {
		return errors.Errorf("loop frequency must be above 0 and at most %vHz, got %v", MaxFrequency, cfg.Frequency)
	}
	return nil
}

// Period returns the tick period for the configured frequency.
func (cfg LoopConfig) Period() time.Duration {
	return time.Duration(float64(time.Second) / cfg.Frequency)
}

// Loop drives a Controller at a fixed rate on a single goroutine.
type Loop struct {
	cfg    LoopConfig
	ctrl   Controller
	clk    clock.Clock
	logger logging.Logger
	dt     time.Duration

	mu                      sync.Mutex
	ticker                  *clock.Ticker
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
	running                 atomic.Bool
	ticks                   atomic.Int64
}

// NewLoop constructs a loop for ctrl. A nil clock uses the wall clock.
func NewLoop(logger logging.Logger, cfg LoopConfig, ctrl Controller, clk clock.Clock) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctrl == nil {
		return nil, errors.New("loop requires a controller")
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		cfg:    cfg,
		ctrl:   ctrl,
		clk:    clk,
		logger: logger,
		dt:     cfg.Period(),
	}, nil
}

// Start calls Starting on the controller and then Update on every tick until Stop is called or ctx
// is done.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running.Load() {
		return errors.New("control loop already running")
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.ticker = l.clk.Ticker(l.dt)

	last := l.clk.Now()
	l.ctrl.Starting(last)
	l.logger.Infof("running loop at %1.4fHz (%v)", l.cfg.Frequency, l.dt)

	ticker := l.ticker
	waitCh := make(chan struct{})
	l.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		close(waitCh)
		for {
			if cancelCtx.Err() != nil {
				return
			}
			select {
			case <-cancelCtx.Done():
				return
			case now := <-ticker.C:
				l.ctrl.Update(now, now.Sub(last))
				last = now
				l.ticks.Inc()
			}
		}
	}, l.activeBackgroundWorkers.Done)
	<-waitCh
	l.running.Store(true)
	return nil
}

// Stop stops the loop and waits for the current tick to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running.Load() {
		return
	}
	l.logger.Debug("closing loop")
	l.ticker.Stop()
	l.cancel()
	l.activeBackgroundWorkers.Wait()
	l.running.Store(false)
}

// Running reports whether the loop is ticking.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Ticks returns the number of ticks run since the loop was created.
func (l *Loop) Ticks() int64 {
	return l.ticks.Load()
}

// Frequency returns the loop's frequency.
func (l *Loop) Frequency() float64 {
	return l.cfg.Frequency
}
