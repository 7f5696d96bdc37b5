package gpso

import (
	"math"

	"github.com/gpso/gpso/internal/gpcore"
)

// sampleRecord is one row of the surrogate's score table: a point in
// [0,1]^d together with its estimated score mu, posterior std sigma,
// and cached UCB u = mu + varsigma*sigma. sigma is zero exactly for
// rows backed by a real objective evaluation.
type sampleRecord struct {
	x     []float64
	mu    float64
	sigma float64
	u     float64
}

func (r sampleRecord) evaluated() bool { return r.sigma == 0 }

// surrogate holds the sample table, the evaluated/GP-based population
// counts, the GP backend, and the exploration schedule.
type surrogate struct {
	lower, upper []float64
	delta        []float64

	rows []sampleRecord
	ne   int
	ng   int

	gp       *gpcore.GP
	hyp      gpcore.Hyperparameters
	schedule Schedule

	likLo, likHi float64
}

const (
	defaultLikLo = -12.0
	defaultLikHi = -1.0
	sigmaFloor   = 1e-6
)

func newSurrogate(d Domain, cfg Config) *surrogate {
	return &surrogate{
		lower: append([]float64(nil), d.Lower...),
		upper: append([]float64(nil), d.Upper...),
		delta: d.delta(),
		gp:    gpcore.New(),
		hyp: gpcore.Hyperparameters{
			Mean: gpcore.MeanFunc{Const: 0},
			Cov:  gpcore.CovFunc{Kind: gpcore.Matern52, LengthScale: 0.25, SignalStdDev: 1.0},
			Lik:  gpcore.LikFunc{LogNoise: math.Log(cfg.Sigma)},
		},
		schedule: cfg.schedule(),
		likLo:    defaultLikLo,
		likHi:    defaultLikHi,
	}
}

// normalize maps a raw-domain point into [0,1]^d, clamping the result
// so a query point on or fractionally outside the domain boundary
// (floating-point overshoot from denormalize/renormalize round trips)
// never produces an out-of-cube coordinate.
func (s *surrogate) normalize(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = clamp((x[i]-s.lower[i])/s.delta[i], 0, 1)
	}
	return out
}

// denormalize maps a [0,1]^d point back into the original domain.
func (s *surrogate) denormalize(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = s.lower[i] + x[i]*s.delta[i]
	}
	return out
}

// append adds one row to the table. If raw is true, x is in original
// domain coordinates and gets normalized first. It returns the index of
// the newly appended row.
func (s *surrogate) append(x []float64, mu, sigma float64, raw bool) int {
	if raw {
		x = s.normalize(x)
	}
	u := mu
	if sigma > 0 {
		u = mu + s.schedule(s.ng+1)*sigma
	}
	s.rows = append(s.rows, sampleRecord{x: append([]float64(nil), x...), mu: mu, sigma: sigma, u: u})
	if sigma == 0 {
		s.ne++
	} else {
		s.ng++
	}
	return len(s.rows) - 1
}

// update overwrites row k, maintaining Ne/Ng by diffing the previous
// vs. new sigma nonzero-ness.
func (s *surrogate) update(k int, mu, sigma float64) {
	wasEvaluated := s.rows[k].evaluated()
	s.rows[k].mu = mu
	s.rows[k].sigma = sigma
	if sigma == 0 {
		s.rows[k].u = mu
	} else {
		s.rows[k].u = mu + s.schedule(s.ng)*sigma
	}

	nowEvaluated := sigma == 0
	switch {
	case wasEvaluated && !nowEvaluated:
		s.ne--
		s.ng++
	case !wasEvaluated && nowEvaluated:
		s.ng--
		s.ne++
	}
}

// ucbRefresh recomputes u for every GP-based row using the current
// schedule value ς(Ng). Evaluated rows keep u = mu.
func (s *surrogate) ucbRefresh() {
	varsigma := s.schedule(s.ng)
	for i := range s.rows {
		if s.rows[i].sigma > 0 {
			s.rows[i].u = s.rows[i].mu + varsigma*s.rows[i].sigma
		} else {
			s.rows[i].u = s.rows[i].mu
		}
	}
}

func (s *surrogate) evaluatedXY() ([][]float64, []float64) {
	X := make([][]float64, 0, s.ne)
	y := make([]float64, 0, s.ne)
	for _, r := range s.rows {
		if r.evaluated() {
			X = append(X, r.x)
			y = append(y, r.mu)
		}
	}
	return X, y
}

// predict calls the GP backend with the current hyperparameters over
// only the evaluated samples, post-processing sigma to max(eps,
// sqrt(variance)) so predicted rows never accidentally read as
// evaluated. On a non-PD kernel matrix it bumps hyp.Lik.LogNoise and
// retries until hyp.Lik.LogNoise reaches likHi.
func (s *surrogate) predict(xq [][]float64) (mu, sigma []float64, err error) {
	X, y := s.evaluatedXY()

	hyp := s.hyp
	for {
		m, v, perr := s.gp.Predict(hyp, X, y, xq)
		if perr == nil {
			sigma = make([]float64, len(v))
			for i, vi := range v {
				sigma[i] = math.Max(sigmaFloor, math.Sqrt(vi))
			}
			return m, sigma, nil
		}
		hyp.Lik.LogNoise++
		if hyp.Lik.LogNoise >= s.likHi {
			return nil, nil, newError(ErrNumerical, "surrogate.predict", perr)
		}
	}
}

// train optimizes hyp by minimizing negative log marginal likelihood on
// evaluated samples, clamps Lik.LogNoise into [likLo, likHi], and then
// refreshes every GP-based row's (mu, sigma, u) by re-predicting at its
// x.
func (s *surrogate) train(maxIter int) error {
	X, y := s.evaluatedXY()
	if len(X) == 0 {
		return nil
	}

	result, err := s.gp.Train(s.hyp, X, y, maxIter)
	if err != nil {
		return newError(ErrNumerical, "surrogate.train", err)
	}
	result.Hyp.Clamp(s.likLo, s.likHi)
	s.hyp = result.Hyp

	var gpIdx []int
	var xq [][]float64
	for i, r := range s.rows {
		if !r.evaluated() {
			gpIdx = append(gpIdx, i)
			xq = append(xq, r.x)
		}
	}
	if len(gpIdx) == 0 {
		return nil
	}

	mu, sigma, err := s.predict(xq)
	if err != nil {
		return err
	}
	for j, idx := range gpIdx {
		s.rows[idx].mu = mu[j]
		s.rows[idx].sigma = sigma[j]
	}
	s.ucbRefresh()
	return nil
}

// bestEvaluated returns the argmax of mu over evaluated rows.
func (s *surrogate) bestEvaluated() (x []float64, f float64, k int) {
	k = -1
	f = math.Inf(-1)
	for i, r := range s.rows {
		if r.evaluated() && r.mu > f {
			f = r.mu
			x = r.x
			k = i
		}
	}
	return x, f, k
}

func (s *surrogate) isGPBased(k int) bool {
	return s.rows[k].sigma > 0
}

func (s *surrogate) ns() int { return len(s.rows) }
