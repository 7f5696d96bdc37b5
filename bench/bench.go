// Package bench provides a small registry of built-in objective
// functions used by the CLI's bench and resume subcommands.
package bench

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Objective mirrors gpso.Objective without importing it, so this
// package stays a leaf dependency usable from both cmd/gpso and tests.
type Objective func(x []float64) float64

// Sphere is maximized at the origin, value 0: f(x) = -sum(x_i^2).
func Sphere(x []float64) float64 {
	sum := 0.0
	for _, xi := range x {
		sum += xi * xi
	}
	return -sum
}

// Sinusoid is sin(5x) on a single dimension, a smooth but oscillatory
// objective with multiple local maxima.
func Sinusoid(x []float64) float64 {
	return math.Sin(5 * x[0])
}

// Rastrigin is the negated Rastrigin function (A = 10): highly multimodal,
// maximized at the origin, value 0.
func Rastrigin(x []float64) float64 {
	const a = 10.0
	sum := a * float64(len(x))
	for _, xi := range x {
		sum += xi*xi - a*math.Cos(2*math.Pi*xi)
	}
	return -sum
}

// Registry names the CLI-selectable built-in objectives.
var Registry = map[string]Objective{
	"sphere":    Sphere,
	"sinusoid":  Sinusoid,
	"rastrigin": Rastrigin,
}

// Noisy wraps an Objective with additive zero-mean Gaussian observation
// noise of standard deviation sigma, sampled from a seeded source for
// reproducible benchmark runs.
func Noisy(objective Objective, sigma float64, seed uint64) Objective {
	noise := distuv.Normal{
		Mu:    0,
		Sigma: sigma,
		Src:   rand.NewSource(seed),
	}
	return func(x []float64) float64 {
		return objective(x) + noise.Rand()
	}
}
