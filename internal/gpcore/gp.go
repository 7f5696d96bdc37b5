package gpcore

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Hyperparameters bundles the mean, covariance, and likelihood
// parameters consumed by Train/Predict.
type Hyperparameters struct {
	Mean MeanFunc
	Cov  CovFunc
	Lik  LikFunc
}

// Clamp restricts Lik.LogNoise into [lo, hi], keeping observation noise
// within a numerically stable range.
func (h *Hyperparameters) Clamp(lo, hi float64) {
	if h.Lik.LogNoise < lo {
		h.Lik.LogNoise = lo
	}
	if h.Lik.LogNoise > hi {
		h.Lik.LogNoise = hi
	}
}

// GP is a Gaussian Process regression model over normalized inputs. It
// holds no training data of its own between calls — callers (the
// Surrogate) own the evaluated-sample table and pass the current set of
// evaluated samples in on every call.
type GP struct {
	jitter float64
}

// New returns a GP backend with a small default numerical jitter added
// to kernel-matrix diagonals for Cholesky stability, in the style of
// copyleftdev-TUNDR's computeKernelMatrix.
func New() *GP {
	return &GP{jitter: 1e-10}
}

func (g *GP) kernelMatrix(hyp Hyperparameters, X [][]float64) *mat.SymDense {
	n := len(X)
	K := mat.NewSymDense(n, nil)
	noise := hyp.Lik.Variance()

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k := hyp.Cov.Eval(X[i], X[j])
			if i == j {
				k += noise + g.jitter
			}
			K.SetSym(i, j, k)
		}
	}
	return K
}

// Predict computes the posterior mean and variance at each query point,
// trained on (X, y). It returns an error if the kernel matrix is not
// positive definite even after jitter — the Surrogate is responsible
// for bumping hyp.Lik.LogNoise and retrying.
func (g *GP) Predict(hyp Hyperparameters, X [][]float64, y []float64, xq [][]float64) (mean, variance []float64, err error) {
	n := len(X)
	m := len(xq)

	mean = make([]float64, m)
	variance = make([]float64, m)

	if n == 0 {
		for i := range mean {
			mean[i] = hyp.Mean.Eval(xq[i])
			variance[i] = hyp.Cov.Eval(xq[i], xq[i]) + hyp.Lik.Variance()
		}
		return mean, variance, nil
	}

	K := g.kernelMatrix(hyp, X)

	var chol mat.Cholesky
	if ok := chol.Factorize(K); !ok {
		return nil, nil, fmt.Errorf("gpcore: Predict: kernel matrix is not positive definite")
	}

	yc := make([]float64, n)
	for i := range y {
		yc[i] = y[i] - hyp.Mean.Eval(X[i])
	}
	yVec := mat.NewVecDense(n, yc)

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, yVec); err != nil {
		return nil, nil, fmt.Errorf("gpcore: Predict: %w", err)
	}

	kstar := mat.NewDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			kstar.Set(i, j, hyp.Cov.Eval(xq[i], X[j]))
		}
	}

	var meanDelta mat.VecDense
	meanDelta.MulVec(kstar, &alpha)

	var v mat.Dense
	if err := v.Solve(&chol, kstar.T()); err != nil {
		return nil, nil, fmt.Errorf("gpcore: Predict: %w", err)
	}

	for i := 0; i < m; i++ {
		mean[i] = hyp.Mean.Eval(xq[i]) + meanDelta.AtVec(i)

		kss := hyp.Cov.Eval(xq[i], xq[i])
		var quad float64
		for j := 0; j < n; j++ {
			quad += kstar.At(i, j) * v.At(j, i)
		}
		vi := kss - quad
		if vi < 0 {
			vi = 0
		}
		variance[i] = vi
	}

	return mean, variance, nil
}

// NegLogMarginalLikelihood computes -log p(y|X,hyp), used by Train's
// objective.
func (g *GP) NegLogMarginalLikelihood(hyp Hyperparameters, X [][]float64, y []float64) (float64, error) {
	n := len(X)
	if n == 0 {
		return 0, errors.New("gpcore: NegLogMarginalLikelihood: no training data")
	}

	K := g.kernelMatrix(hyp, X)

	var chol mat.Cholesky
	if ok := chol.Factorize(K); !ok {
		return 0, errors.New("gpcore: NegLogMarginalLikelihood: kernel matrix is not positive definite")
	}

	yc := make([]float64, n)
	for i := range y {
		yc[i] = y[i] - hyp.Mean.Eval(X[i])
	}
	yVec := mat.NewVecDense(n, yc)

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, yVec); err != nil {
		return 0, fmt.Errorf("gpcore: NegLogMarginalLikelihood: %w", err)
	}

	quad := mat.Dot(yVec, &alpha)
	logDet := chol.LogDet()

	nll := 0.5*quad + 0.5*logDet + 0.5*float64(n)*math.Log(2*math.Pi)
	return nll, nil
}
