package gpcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultHyp() Hyperparameters {
	return Hyperparameters{
		Mean: MeanFunc{Const: 0},
		Cov:  CovFunc{Kind: Matern52, LengthScale: 0.3, SignalStdDev: 1.0},
		Lik:  LikFunc{LogNoise: -4},
	}
}

func TestPredictNoTrainingData(t *testing.T) {
	g := New()
	mean, variance, err := g.Predict(defaultHyp(), nil, nil, [][]float64{{0.5, 0.5}})
	require.NoError(t, err)
	assert.Len(t, mean, 1)
	assert.Len(t, variance, 1)
	assert.Greater(t, variance[0], 0.0)
}

func TestPredictRecoversTrainingPoints(t *testing.T) {
	g := New()
	hyp := defaultHyp()
	hyp.Lik.LogNoise = -12

	X := [][]float64{{0.1, 0.1}, {0.5, 0.5}, {0.9, 0.9}}
	y := []float64{1.0, 2.0, -1.0}

	mean, variance, err := g.Predict(hyp, X, y, X)
	require.NoError(t, err)

	for i := range y {
		assert.InDelta(t, y[i], mean[i], 1e-2)
		assert.Less(t, variance[i], 1e-2)
	}
}

func TestPredictVarianceGrowsAwayFromData(t *testing.T) {
	g := New()
	hyp := defaultHyp()

	X := [][]float64{{0.5, 0.5}}
	y := []float64{1.0}

	_, varNear, err := g.Predict(hyp, X, y, [][]float64{{0.5, 0.5}})
	require.NoError(t, err)

	_, varFar, err := g.Predict(hyp, X, y, [][]float64{{0.0, 0.0}})
	require.NoError(t, err)

	assert.Less(t, varNear[0], varFar[0])
}

func TestNegLogMarginalLikelihoodNoData(t *testing.T) {
	g := New()
	_, err := g.NegLogMarginalLikelihood(defaultHyp(), nil, nil)
	assert.Error(t, err)
}

func TestTrainImprovesLikelihood(t *testing.T) {
	g := New()
	hyp0 := defaultHyp()

	X := [][]float64{{0.0}, {0.25}, {0.5}, {0.75}, {1.0}}
	y := make([]float64, len(X))
	for i, x := range X {
		y[i] = math.Sin(2 * math.Pi * x[0])
	}

	before, err := g.NegLogMarginalLikelihood(hyp0, X, y)
	require.NoError(t, err)

	result, err := g.Train(hyp0, X, y, 50)
	require.NoError(t, err)

	after, err := g.NegLogMarginalLikelihood(result.Hyp, X, y)
	require.NoError(t, err)

	assert.LessOrEqual(t, after, before+1e-6)
}

func TestHyperparametersClamp(t *testing.T) {
	h := Hyperparameters{Lik: LikFunc{LogNoise: -20}}
	h.Clamp(-12, -1)
	assert.Equal(t, -12.0, h.Lik.LogNoise)

	h.Lik.LogNoise = 5
	h.Clamp(-12, -1)
	assert.Equal(t, -1.0, h.Lik.LogNoise)
}

func TestCovFuncMaternVsSE(t *testing.T) {
	m := CovFunc{Kind: Matern52, LengthScale: 1, SignalStdDev: 1}
	se := CovFunc{Kind: SEIso, LengthScale: 1, SignalStdDev: 1}

	x1 := []float64{0, 0}
	x2 := []float64{0, 0}
	assert.Equal(t, 1.0, m.Eval(x1, x2))
	assert.Equal(t, 1.0, se.Eval(x1, x2))

	x3 := []float64{1, 0}
	assert.NotEqual(t, m.Eval(x1, x3), se.Eval(x1, x3))
}
