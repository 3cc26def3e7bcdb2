package control

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestPIDValidate(t *testing.T) {
	_, err := NewPID(PIDConfig{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least one")

	_, err = NewPID(PIDConfig{P: 1, IClamp: -1})
	test.That(t, err, test.ShouldNotBeNil)

	p, err := NewPID(PIDConfig{P: 100, D: 10})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Config(), test.ShouldResemble, PIDConfig{P: 100, D: 10})
}

func TestPIDComputeCommand(t *testing.T) {
	p, err := NewPID(PIDConfig{P: 2, I: 10, D: 0.5})
	test.That(t, err, test.ShouldBeNil)
	dt := 10 * time.Millisecond

	// integral is updated before the output is formed
	test.That(t, p.ComputeCommand(1, 4, dt), test.ShouldAlmostEqual, 2+0.1+2)
	test.That(t, p.Integral(), test.ShouldAlmostEqual, 0.1)
	test.That(t, p.ComputeCommand(-1, 0, dt), test.ShouldAlmostEqual, -2+0)
	test.That(t, p.Integral(), test.ShouldAlmostEqual, 0)

	// no elapsed time leaves the integral alone
	test.That(t, p.ComputeCommand(3, 0, 0), test.ShouldAlmostEqual, 6)
	test.That(t, p.Integral(), test.ShouldAlmostEqual, 0)

	p.ComputeCommand(1, 0, time.Second)
	test.That(t, p.Integral(), test.ShouldAlmostEqual, 10)
	p.Reset()
	test.That(t, p.Integral(), test.ShouldEqual, 0.)
}

func TestPIDIntegralClamp(t *testing.T) {
	p, err := NewPID(PIDConfig{I: 1, IClamp: 0.5})
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 10; i++ {
		p.ComputeCommand(1, 0, 100*time.Millisecond)
	}
	test.That(t, p.Integral(), test.ShouldAlmostEqual, 0.5)
	test.That(t, p.ComputeCommand(1, 0, 100*time.Millisecond), test.ShouldAlmostEqual, 0.5)
	for i := 0; i < 20; i++ {
		p.ComputeCommand(-1, 0, 100*time.Millisecond)
	}
	test.That(t, p.Integral(), test.ShouldAlmostEqual, -0.5)
}
