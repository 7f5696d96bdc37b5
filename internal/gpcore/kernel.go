// Package gpcore implements Gaussian Process inference primitives:
// posterior mean/variance via a Cholesky-factorized kernel solve, and
// hyperparameter training by minimizing the negative log marginal
// likelihood with a derivative-free search.
package gpcore

import "math"

const sqrt5 = 2.23606797749978969640917366873127623544061835961152572427089

// MeanFunc is a tagged mean-function variant. Currently only a constant
// mean is supported, so Eval needs no gradient.
type MeanFunc struct {
	Const float64
}

func (m MeanFunc) Eval([]float64) float64 {
	return m.Const
}

// CovFunc is a tagged covariance-function variant. Matérn ν=5/2 is the
// default; SEIso (squared exponential) is carried as an alternative
// kernel with the same length-scale/signal-variance parameterization.
type CovFunc struct {
	Kind         CovKind
	LengthScale  float64
	SignalStdDev float64
}

type CovKind int

const (
	Matern52 CovKind = iota
	SEIso
)

// Eval computes k(x1, x2) for the configured covariance kind.
func (c CovFunc) Eval(x1, x2 []float64) float64 {
	r := dist(x1, x2) / c.LengthScale
	sf2 := c.SignalStdDev * c.SignalStdDev

	switch c.Kind {
	case SEIso:
		return sf2 * math.Exp(-0.5*r*r)
	default: // Matern52
		sqrt5r := sqrt5 * r
		return sf2 * (1 + sqrt5r + (5.0/3.0)*r*r) * math.Exp(-sqrt5r)
	}
}

func dist(x1, x2 []float64) float64 {
	var sum float64
	for i := range x1 {
		d := x1[i] - x2[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// LikFunc is the Gaussian observation-noise likelihood. LogNoise is the
// log of the observation-noise standard deviation, so the variance is
// exp(2*LogNoise).
type LikFunc struct {
	LogNoise float64
}

func (l LikFunc) Variance() float64 {
	return math.Exp(2 * l.LogNoise)
}
