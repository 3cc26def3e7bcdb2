package ik

import (
	"gonum.org/v1/gonum/mat"
)

// Projector is the null-space projector of the tasks folded in so far. It starts as the identity and
// loses rank as each task is folded in.
type Projector struct {
	n int
	p *mat.Dense
}

// NewProjector returns an n×n identity projector.
func NewProjector(n int) *Projector {
	p := &Projector{n: n, p: mat.NewDense(n, n, nil)}
	p.Reset()
	return p
}

// Reset sets the projector back to the identity.
func (p *Projector) Reset() {
	p.p.Zero()
	for i := 0; i < p.n; i++ {
		p.p.Set(i, i, 1)
	}
}

// Matrix returns the current projector.
func (p *Projector) Matrix() mat.Matrix {
	return p.p
}

// Project returns J·P, the part of a task Jacobian acting in the remaining null space.
func (p *Projector) Project(jac mat.Matrix) *mat.Dense {
	rows, _ := jac.Dims()
	out := mat.NewDense(rows, p.n, nil)
	out.Mul(jac, p.p)
	return out
}

// Fold removes the row space of a projected Jacobian from the projector: P ← P − pinv(J*)·J*.
// The exact inverse is used here since damping would leave a residual component of the task.
func (p *Projector) Fold(jStar mat.Matrix) {
	var shrink mat.Dense
	shrink.Mul(PseudoInverse(jStar), jStar)
	p.p.Sub(p.p, &shrink)
}

// Rank returns the numerical rank of the projector.
func (p *Projector) Rank() int {
	return Rank(p.p, 1e-6)
}
