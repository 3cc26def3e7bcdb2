// Package ik solves prioritized multi-task inverse kinematics for a redundant serial chain by
// recursive null-space projection.
package ik

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultDamping is the damping factor used by the solver when none is configured.
const DefaultDamping = 0.2

// DampedPseudoInverse returns the damped least squares inverse V·diag(σ/(σ²+λ²))·Uᵀ of a. With lambda
// zero the result approaches the Moore-Penrose inverse but is not truncated near singularities.
// If the decomposition fails the zero matrix is returned.
func DampedPseudoInverse(a mat.Matrix, lambda float64) *mat.Dense {
	l2 := lambda * lambda
	return invertSingularValues(a, func(sigma, _ float64) float64 {
		if sigma == 0 && l2 == 0 {
			return 0
		}
		return sigma / (sigma*sigma + l2)
	})
}

// PseudoInverse returns the Moore-Penrose inverse of a. Singular values at or below the numerical
// rank tolerance are treated as zero. If the decomposition fails the zero matrix is returned.
func PseudoInverse(a mat.Matrix) *mat.Dense {
	return invertSingularValues(a, func(sigma, tol float64) float64 {
		if sigma <= tol {
			return 0
		}
		return 1 / sigma
	})
}

// Rank returns the number of singular values of a strictly greater than tol. A non-positive tol
// selects the default tolerance max(rows, cols)·σmax·ε.
func Rank(a mat.Matrix, tol float64) int {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return 0
	}
	values := svd.Values(nil)
	if tol <= 0 {
		r, c := a.Dims()
		tol = rankTolerance(r, c, values)
	}
	rank := 0
	for _, s := range values {
		if s > tol {
			rank++
		}
	}
	return rank
}

func rankTolerance(r, c int, values []float64) float64 {
	sigmaMax := 0.
	if len(values) > 0 {
		sigmaMax = values[0]
	}
	return math.Max(float64(max(r, c))*sigmaMax*epsilon, 1e-12)
}

// epsilon is the float64 machine epsilon.
const epsilon = 2.220446049250313e-16

// invertSingularValues computes V·diag(f(σ))·Uᵀ.
func invertSingularValues(a mat.Matrix, f func(sigma, tol float64) float64) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(c, r, nil)

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return out
	}
	values := svd.Values(nil)
	tol := rankTolerance(r, c, values)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	for j, s := range values {
		scale := f(s, tol)
		for i := 0; i < c; i++ {
			v.Set(i, j, v.At(i, j)*scale)
		}
	}
	out.Mul(&v, u.T())
	return out
}
