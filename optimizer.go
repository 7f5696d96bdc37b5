package gpso

import "math"

// Objective is the user-supplied callable: it takes a point in the
// ORIGINAL (non-normalized) domain and returns a finite scalar to
// maximize.
type Objective func(x []float64) float64

// Sample is one evaluated (x, f) pair in original coordinates.
type Sample struct {
	X []float64
	F float64
}

// Result is returned by Run: every truly evaluated sample, plus the
// argmax among them.
type Result struct {
	Samples  []Sample
	Solution Sample
}

// Optimizer orchestrates initialization, the four-step iteration,
// hyperparameter retraining, and finalization. It owns the Surrogate
// and PartitionTree exclusively; no other component accesses their
// internals.
type Optimizer struct {
	domain Domain
	cfg    Config
	sur    *surrogate
	tree   *partitionTree

	xi      float64
	lb      float64
	n       int // retrain-schedule counter
	dim     int
	iterLog []IterationRecord
}

// Checkpoint snapshots the Optimizer's current state for persistence.
func (o *Optimizer) Checkpoint() Checkpoint {
	return o.capture(o.iterLog)
}

// Resume restores an Optimizer from ck and continues running objective
// over domain under cfg's (possibly raised) NMax budget, returning the
// same Result shape as Run. Serializing after N iterations,
// deserializing, and running one more step yields the same LB as
// running N+1 iterations in one continuous process: restore()
// reconstructs every field runLoop reads, so this holds.
func Resume(ck Checkpoint, objective Objective, domain Domain, cfg Config) (Result, error) {
	_, result, err := resume(ck, objective, domain, cfg)
	return result, err
}

// ResumeCheckpointed behaves exactly like Resume but also returns a
// Checkpoint of the optimizer's state after the resumed run completes,
// mirroring RunCheckpointed's role for the fresh-start path.
func ResumeCheckpointed(ck Checkpoint, objective Objective, domain Domain, cfg Config) (Result, Checkpoint, error) {
	o, result, err := resume(ck, objective, domain, cfg)
	if err != nil {
		return Result{}, Checkpoint{}, err
	}
	return result, o.Checkpoint(), nil
}

func resume(ck Checkpoint, objective Objective, domain Domain, cfg Config) (*Optimizer, Result, error) {
	o, iterLog, err := restore(ck, domain, cfg)
	if err != nil {
		return nil, Result{}, err
	}
	o.iterLog = iterLog
	result, err := o.runLoop(objective)
	if err != nil {
		return nil, Result{}, err
	}
	return o, result, nil
}

// Run executes GPSO against objective over domain under the NMax budget
// in cfg, returning every evaluated sample and the best one found.
func Run(objective Objective, domain Domain, cfg Config) (Result, error) {
	_, result, err := run(objective, domain, cfg)
	return result, err
}

// RunCheckpointed behaves exactly like Run but also returns a Checkpoint
// of the optimizer's final state, so a caller (notably the CLI's
// `bench --save` flag) can persist a completed run and continue it
// later under a higher NMax via Resume, without Run itself needing to
// expose the *Optimizer.
func RunCheckpointed(objective Objective, domain Domain, cfg Config) (Result, Checkpoint, error) {
	o, result, err := run(objective, domain, cfg)
	if err != nil {
		return Result{}, Checkpoint{}, err
	}
	return result, o.Checkpoint(), nil
}

func run(objective Objective, domain Domain, cfg Config) (*Optimizer, Result, error) {
	if err := domain.validate(); err != nil {
		return nil, Result{}, err
	}
	if err := cfg.validate(); err != nil {
		return nil, Result{}, err
	}

	o := &Optimizer{
		domain: domain,
		cfg:    cfg,
		dim:    domain.Dim(),
		xi:     1,
		n:      1,
	}
	o.sur = newSurrogate(domain, cfg)

	// Evaluate the domain midpoint as the initial center sample.
	centerNorm := make([]float64, o.dim)
	for i := range centerNorm {
		centerNorm[i] = 0.5
	}
	centerRaw := o.sur.denormalize(centerNorm)
	centerVal := objective(centerRaw)
	centerIdx := o.sur.append(centerNorm, centerVal, 0, false)
	o.lb = centerVal

	if err := o.sur.train(cfg.MaxTrainIter); err != nil {
		return nil, Result{}, err
	}

	o.tree = newPartitionTree(o.dim, centerIdx)

	if err := cfg.Hooks.call("Optimizer.Run:PostInitialise", func() error {
		return callHook(cfg.Hooks.PostInitialise, IterationUpdate{
			Iteration: 0,
			XI:        o.xi,
			LB:        o.lb,
			Ne:        o.sur.ne,
			Ng:        o.sur.ng,
			TreeDepth: o.tree.depth(),
		})
	}); err != nil {
		return nil, Result{}, err
	}

	result, err := o.runLoop(objective)
	if err != nil {
		return nil, Result{}, err
	}
	return o, result, nil
}

// runLoop drives the four-step iteration until Ne reaches cfg.NMax or
// Step 2 finds no eligible frontier leaf. It is shared by Run (fresh
// start) and Resume (continuing from a Checkpoint), so both paths
// observe identical semantics.
func (o *Optimizer) runLoop(objective Objective) (Result, error) {
	cfg := o.cfg
	logger := cfg.logger()

	iteration := len(o.iterLog)
	for o.sur.ne < cfg.NMax {
		iteration++
		prevLB := o.lb

		promoted := o.step1Opportunistic(objective)
		if len(promoted) > 0 {
			if err := cfg.Hooks.call("Optimizer.Run:PostUpdate", func() error {
				return callHookIndices(cfg.Hooks.PostUpdate, promoted)
			}); err != nil {
				return Result{}, err
			}
		}

		sels, err := o.step2Select(objective)
		if err != nil {
			return Result{}, err
		}

		if len(sels) == 0 {
			logger.Warn("gpso: search exhaustion: no eligible frontier leaf; terminating early")
			break
		}

		if err := o.step3LookAhead(sels); err != nil {
			return Result{}, err
		}

		nSelected := o.step4Commit(sels)

		if o.lb > prevLB {
			o.xi = math.Min(cfg.xiMax(o.dim), o.xi+4)
		} else {
			o.xi = math.Max(1, o.xi-0.5)
		}

		retrained := false
		if 2*float64(o.tree.ns) >= cfg.UPC*float64(o.n)*float64(o.n+1) {
			if err := o.sur.train(cfg.MaxTrainIter); err != nil {
				return Result{}, err
			}
			o.n = int(math.Ceil((math.Sqrt(1+8*float64(o.tree.ns)/cfg.UPC) - 1) / 2))
			if o.n < 1 {
				o.n = 1
			}
			retrained = true
		}

		if o.cfg.Verbose {
			logger.WithFields(map[string]interface{}{
				"iteration": iteration,
				"lb":        o.lb,
				"xi":        o.xi,
				"nSelected": nSelected,
				"retrained": retrained,
			}).Debug("gpso: iteration complete")
		}

		if err := cfg.Hooks.call("Optimizer.Run:PostIteration", func() error {
			return callHook(cfg.Hooks.PostIteration, IterationUpdate{
				Iteration:    iteration,
				XI:           o.xi,
				NSelected:    nSelected,
				LB:           o.lb,
				Ne:           o.sur.ne,
				Ng:           o.sur.ng,
				TreeDepth:    o.tree.depth(),
				RetrainEvent: retrained,
			})
		}); err != nil {
			return Result{}, err
		}

		o.iterLog = append(o.iterLog, IterationRecord{XI: o.xi, NSelected: nSelected, LB: o.lb})
	}

	result := o.finalize()

	if err := cfg.Hooks.call("Optimizer.Run:PreFinalise", func() error {
		return callHookResult(cfg.Hooks.PreFinalise, result)
	}); err != nil {
		return Result{}, err
	}

	return result, nil
}

func callHook(fn func(IterationUpdate) error, u IterationUpdate) error {
	if fn == nil {
		return nil
	}
	return fn(u)
}

func callHookIndices(fn func([]int) error, idx []int) error {
	if fn == nil {
		return nil
	}
	return fn(idx)
}

func callHookResult(fn func(Result) error, r Result) error {
	if fn == nil {
		return nil
	}
	return fn(r)
}

// step1Opportunistic refreshes UCB, evaluates the objective at every
// row whose UCB exceeds the current LB, and refreshes LB. Returns the
// indices promoted to evaluated.
func (o *Optimizer) step1Opportunistic(objective Objective) []int {
	o.sur.ucbRefresh()

	var candidates []int
	for k, r := range o.sur.rows {
		if r.u > o.lb {
			candidates = append(candidates, k)
		}
	}

	for _, k := range candidates {
		raw := o.sur.denormalize(o.sur.rows[k].x)
		f := objective(raw)
		o.sur.update(k, f, 0)
	}

	if len(candidates) > 0 {
		o.sur.ucbRefresh()
		_, best, _ := o.sur.bestEvaluated()
		if best > o.lb {
			o.lb = best
		}
	}

	return candidates
}

// selection records one depth's surviving leaf from Step 2/3.
type selection struct {
	depth int
	i     int
	k     int
	g     float64
	alive bool
}

// step2Select scans depths, maintaining a monotone UCB threshold,
// forcing GP-based winners to be evaluated and restarting the depth's
// scan until the winner is evaluated or no leaf qualifies.
func (o *Optimizer) step2Select(objective Objective) ([]selection, error) {
	var sels []selection
	vMax := math.Inf(-1)

	for h := 1; h <= o.tree.depth(); h++ {
		vEntry := vMax
		for {
			i, found := o.bestLeafAbove(h, vMax)
			if !found {
				break
			}
			k := o.tree.sample(h, i)

			if o.sur.isGPBased(k) {
				raw := o.sur.denormalize(o.sur.rows[k].x)
				f := objective(raw)
				o.sur.update(k, f, 0)
				o.sur.ucbRefresh()
				if f > o.lb {
					o.lb = f
				}
				vMax = vEntry
				continue
			}

			sels = append(sels, selection{depth: h, i: i, k: k, g: o.sur.rows[k].u, alive: true})
			vMax = o.sur.rows[k].u
			break
		}
	}

	return sels, nil
}

// bestLeafAbove finds the leaf at depth h with the highest UCB strictly
// greater than vMax, ties broken by lowest index.
func (o *Optimizer) bestLeafAbove(h int, vMax float64) (i int, found bool) {
	width := o.tree.width(h)
	best := vMax
	idx := -1
	for j := 0; j < width; j++ {
		if !o.tree.leaf(h, j) {
			continue
		}
		k := o.tree.sample(h, j)
		u := o.sur.rows[k].u
		if u > best {
			best = u
			idx = j
		}
	}
	if idx < 0 {
		return 0, false
	}
	return idx, true
}

// step3LookAhead evaluates each selection with a later selected depth
// by virtually expanding a ternary tree rooted at the selection's box
// to a bounded depth, dropping the selection if no virtual descendant's
// UCB reaches the next selection's threshold.
func (o *Optimizer) step3LookAhead(sels []selection) error {
	nSel := len(sels)
	maxDepth := o.tree.depth()

	for j := range sels {
		if j == len(sels)-1 {
			continue // no later selected depth: skip pruning, keep alive.
		}
		h := sels[j].depth
		nextDepth := sels[j+1].depth
		capBound := int(math.Ceil(float64(h)+o.xi)) - h
		if maxDepth-h < capBound {
			capBound = maxDepth - h
		}
		sdepth := nextDepth - h
		if sdepth > capBound {
			sdepth = capBound
		}
		if sdepth <= 0 {
			continue
		}

		lower, upper := o.tree.box(sels[j].depth, sels[j].i)
		keep, err := o.lookAhead(lower, upper, sdepth, sels[j+1].g, nSel)
		if err != nil {
			return err
		}
		sels[j].alive = keep
	}

	return nil
}

type virtualNode struct {
	lower, upper []float64
	hPrime       int
}

// lookAhead performs a bounded virtual expansion: at each virtual level
// it predicts at both outer-child centers (the middle child inherits
// the parent's value, so it needs no prediction), tracking whether any
// predicted UCB reaches gTarget. Returning true the moment that happens
// is equivalent to tracking the running maximum over the whole bounded
// expansion and comparing it once at the end, since the running maximum
// can only grow as virtual nodes are visited — so this single pass
// covers both an early exit and the full-expansion comparison.
func (o *Optimizer) lookAhead(lower, upper []float64, sdepth int, gTarget float64, nSel int) (bool, error) {
	queue := []virtualNode{{lower, upper, 0}}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if node.hPrime >= sdepth {
			continue
		}

		lowers, uppers, centers := childBoxes(node.lower, node.upper)
		hPrime := node.hPrime + 1
		m2 := o.sur.ng + 2*(nSel+hPrime-1)
		varsigma := o.sur.schedule(m2)

		for _, c := range [2]int{0, 2} {
			mu, sigma, err := o.sur.predict([][]float64{centers[c]})
			if err != nil {
				return false, err
			}
			val := mu[0] + varsigma*sigma[0]
			if val >= gTarget {
				return true, nil
			}
			queue = append(queue, virtualNode{lowers[c], uppers[c], hPrime})
		}
	}

	return false, nil
}

// step4Commit splits the tree at each surviving selection: it predicts
// the outer-child centers, appends them as GP-based samples, and
// records the three-way split.
func (o *Optimizer) step4Commit(sels []selection) int {
	count := 0
	for _, sel := range sels {
		if !sel.alive {
			continue
		}
		count++

		lower, upper := o.tree.box(sel.depth, sel.i)
		lowers, uppers, centers := childBoxes(lower, upper)

		mu, sigma, err := o.sur.predict([][]float64{centers[0], centers[2]})
		if err != nil {
			// Numerical failure during commit is non-fatal for the
			// remaining selections: skip this split rather than abort
			// the whole iteration.
			continue
		}

		loIdx := o.sur.append(centers[0], mu[0], sigma[0], false)
		hiIdx := o.sur.append(centers[2], mu[1], sigma[1], false)

		parentIdx := o.tree.sample(sel.depth, sel.i)
		o.tree.split(sel.depth, sel.i, lowers, uppers, [3]int{loIdx, parentIdx, hiIdx})
	}
	return count
}

// finalize gathers every evaluated sample and the argmax among them in
// original coordinates.
func (o *Optimizer) finalize() Result {
	var samples []Sample
	for _, r := range o.sur.rows {
		if !r.evaluated() {
			continue
		}
		samples = append(samples, Sample{X: o.sur.denormalize(r.x), F: r.mu})
	}

	best := Sample{F: math.Inf(-1)}
	for _, s := range samples {
		if s.F > best.F {
			best = s
		}
	}

	return Result{Samples: samples, Solution: best}
}
