package gpso

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gpso/gpso/internal/gpcore"
)

// checkpointVersion is the persistence format version written to every
// Checkpoint, so future format changes can detect and migrate older
// files.
const checkpointVersion = "0.1"

// IterationRecord is one row of the checkpoint's per-iteration log:
// the look-ahead depth bound XI, selection count, and lower bound
// observed after that iteration.
type IterationRecord struct {
	XI        float64 `yaml:"xi"`
	NSelected int     `yaml:"n_selected"`
	LB        float64 `yaml:"lb"`
}

// TreeCheckpoint is the serialized partition tree: lower, upper,
// sample_idx, and leaf_flag per depth.
type TreeCheckpoint struct {
	Lower     [][][]float64 `yaml:"lower"`
	Upper     [][][]float64 `yaml:"upper"`
	SampleIdx [][]int       `yaml:"sample_idx"`
	LeafFlag  [][]bool      `yaml:"leaf_flag"`
	NS        int           `yaml:"ns"`
}

// SurrogateCheckpoint is the serialized sample table and GP
// hyperparameters.
type SurrogateCheckpoint struct {
	Lower []float64   `yaml:"lower"`
	Upper []float64   `yaml:"upper"`
	X     [][]float64 `yaml:"x"`
	Mu    []float64   `yaml:"mu"`
	Sigma []float64   `yaml:"sigma"`
	Ne    int         `yaml:"ne"`
	Ng    int         `yaml:"ng"`

	MeanConst    float64 `yaml:"mean_const"`
	CovKind      int     `yaml:"cov_kind"`
	LengthScale  float64 `yaml:"length_scale"`
	SignalStdDev float64 `yaml:"signal_std_dev"`
	LogNoise     float64 `yaml:"log_noise"`
}

// Checkpoint is the full versioned, self-describing state needed to
// resume a run: iteration log, partition tree, and surrogate.
type Checkpoint struct {
	Version   string              `yaml:"version"`
	Iter      []IterationRecord   `yaml:"iter"`
	Tree      TreeCheckpoint      `yaml:"tree"`
	Surrogate SurrogateCheckpoint `yaml:"surrogate"`
}

// capture snapshots the Optimizer's current state into a Checkpoint.
func (o *Optimizer) capture(iterLog []IterationRecord) Checkpoint {
	ck := Checkpoint{
		Version: checkpointVersion,
		Iter:    append([]IterationRecord(nil), iterLog...),
	}

	ck.Tree.NS = o.tree.ns
	for _, lvl := range o.tree.levels {
		ck.Tree.Lower = append(ck.Tree.Lower, append([][]float64(nil), lvl.lower...))
		ck.Tree.Upper = append(ck.Tree.Upper, append([][]float64(nil), lvl.upper...))
		ck.Tree.SampleIdx = append(ck.Tree.SampleIdx, append([]int(nil), lvl.sampleIdx...))
		ck.Tree.LeafFlag = append(ck.Tree.LeafFlag, append([]bool(nil), lvl.leaf...))
	}

	ck.Surrogate.Lower = append([]float64(nil), o.sur.lower...)
	ck.Surrogate.Upper = append([]float64(nil), o.sur.upper...)
	ck.Surrogate.Ne = o.sur.ne
	ck.Surrogate.Ng = o.sur.ng
	for _, r := range o.sur.rows {
		ck.Surrogate.X = append(ck.Surrogate.X, append([]float64(nil), r.x...))
		ck.Surrogate.Mu = append(ck.Surrogate.Mu, r.mu)
		ck.Surrogate.Sigma = append(ck.Surrogate.Sigma, r.sigma)
	}
	ck.Surrogate.MeanConst = o.sur.hyp.Mean.Const
	ck.Surrogate.CovKind = int(o.sur.hyp.Cov.Kind)
	ck.Surrogate.LengthScale = o.sur.hyp.Cov.LengthScale
	ck.Surrogate.SignalStdDev = o.sur.hyp.Cov.SignalStdDev
	ck.Surrogate.LogNoise = o.sur.hyp.Lik.LogNoise

	return ck
}

// restore rebuilds an Optimizer from a Checkpoint and the Config/domain
// that produced it. cfg.NMax and similar fields are taken from cfg, not
// the checkpoint, so resuming with a higher budget is simply a matter
// of raising NMax before calling Resume.
func restore(ck Checkpoint, domain Domain, cfg Config) (*Optimizer, []IterationRecord, error) {
	if err := domain.validate(); err != nil {
		return nil, nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	o := &Optimizer{
		domain: domain,
		cfg:    cfg,
		dim:    domain.Dim(),
		xi:     1,
		n:      1,
	}
	o.sur = newSurrogate(domain, cfg)
	o.sur.ne = ck.Surrogate.Ne
	o.sur.ng = ck.Surrogate.Ng
	o.sur.hyp.Mean.Const = ck.Surrogate.MeanConst
	o.sur.hyp.Cov.Kind = gpcore.CovKind(ck.Surrogate.CovKind)
	o.sur.hyp.Cov.LengthScale = ck.Surrogate.LengthScale
	o.sur.hyp.Cov.SignalStdDev = ck.Surrogate.SignalStdDev
	o.sur.hyp.Lik.LogNoise = ck.Surrogate.LogNoise

	for i := range ck.Surrogate.X {
		o.sur.rows = append(o.sur.rows, sampleRecord{
			x:     append([]float64(nil), ck.Surrogate.X[i]...),
			mu:    ck.Surrogate.Mu[i],
			sigma: ck.Surrogate.Sigma[i],
		})
	}
	o.sur.ucbRefresh()

	o.tree = &partitionTree{ns: ck.Tree.NS}
	for h := range ck.Tree.SampleIdx {
		o.tree.levels = append(o.tree.levels, &treeLevel{
			lower:     append([][]float64(nil), ck.Tree.Lower[h]...),
			upper:     append([][]float64(nil), ck.Tree.Upper[h]...),
			sampleIdx: append([]int(nil), ck.Tree.SampleIdx[h]...),
			leaf:      append([]bool(nil), ck.Tree.LeafFlag[h]...),
		})
	}

	// The retrain counter is not stored; it is recomputed from the split
	// count with the same formula runLoop applies after a retrain, which
	// also yields the value it holds between retrains.
	o.n = int(math.Ceil((math.Sqrt(1+8*float64(o.tree.ns)/cfg.UPC) - 1) / 2))
	if o.n < 1 {
		o.n = 1
	}

	if n := len(ck.Iter); n > 0 {
		o.xi = ck.Iter[n-1].XI
		o.lb = ck.Iter[n-1].LB
	} else {
		_, o.lb, _ = o.sur.bestEvaluated()
	}

	return o, append([]IterationRecord(nil), ck.Iter...), nil
}

// Save writes a Checkpoint to path as YAML.
func Save(ck Checkpoint, path string) error {
	data, err := yaml.Marshal(ck)
	if err != nil {
		return newError(ErrConfig, "Save", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newError(ErrConfig, "Save", err)
	}
	return nil
}

// Load reads a Checkpoint back from path.
func Load(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, newError(ErrConfig, "Load", err)
	}
	var ck Checkpoint
	if err := yaml.Unmarshal(data, &ck); err != nil {
		return Checkpoint{}, newError(ErrConfig, "Load", err)
	}
	return ck, nil
}
