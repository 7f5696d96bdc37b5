package gpcore

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// TrainResult carries the optimized hyperparameters returned by Train.
type TrainResult struct {
	Hyp Hyperparameters
}

// Train minimizes the negative log marginal likelihood over
// (LengthScale, SignalStdDev, LogNoise) starting from hyp0, for up to
// maxIter Nelder-Mead iterations.
func (g *GP) Train(hyp0 Hyperparameters, X [][]float64, y []float64, maxIter int) (TrainResult, error) {
	pack := func(h Hyperparameters) []float64 {
		return []float64{h.Cov.LengthScale, h.Cov.SignalStdDev, h.Lik.LogNoise}
	}
	unpack := func(v []float64) Hyperparameters {
		h := hyp0
		h.Cov.LengthScale = softplus(v[0])
		h.Cov.SignalStdDev = softplus(v[1])
		h.Lik.LogNoise = v[2]
		return h
	}

	p := optimize.Problem{
		Func: func(v []float64) float64 {
			hyp := unpack(v)
			nll, err := g.NegLogMarginalLikelihood(hyp, X, y)
			if err != nil {
				// Steer the optimizer away from infeasible regions
				// (non-PD kernel matrices) rather than failing the
				// whole training pass.
				return 1e12
			}
			return nll
		},
	}

	x0 := pack(hyp0)
	x0[0] = invSoftplus(hyp0.Cov.LengthScale)
	x0[1] = invSoftplus(hyp0.Cov.SignalStdDev)

	// NelderMead is derivative-free: NegLogMarginalLikelihood has no
	// closed-form gradient wired up, and the pack's own precedent
	// (copyleftdev-TUNDR's acquisition maximizer) reaches for NelderMead
	// rather than a gradient-based method for exactly this reason.
	result, err := optimize.Minimize(p, x0, &optimize.Settings{
		MajorIterations: maxIter,
	}, &optimize.NelderMead{})
	if err != nil && result == nil {
		return TrainResult{}, fmt.Errorf("gpcore: Train: %w", err)
	}

	return TrainResult{Hyp: unpack(result.X)}, nil
}

// softplus/invSoftplus reparameterize the positive length-scale and
// signal-std hyperparameters into an unconstrained space for the
// optimizer to search over.
func softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

func invSoftplus(y float64) float64 {
	if y > 30 {
		return y
	}
	return math.Log(math.Expm1(y))
}
