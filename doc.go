// Package gpso implements GP-based Surrogate Optimization: a Gaussian
// Process surrogate combined with an Upper Confidence Bound acquisition
// rule and a DIRECT-style ternary partitioning of a normalized unit
// hyper-cube, used to maximize an expensive black-box objective under a
// fixed evaluation budget.
//
// # Overview
//
// Run drives the whole search: it normalizes the caller's Domain,
// evaluates the domain's midpoint, fits an initial Gaussian Process
// (internal/gpcore) over the evaluated samples, and then repeats a
// four-step iteration until the evaluation budget (Config.NMax) is
// exhausted:
//
//  1. Opportunistic evaluation of every sample whose UCB exceeds the
//     running lower bound.
//  2. Depth-by-depth selection of the Pareto-optimal frontier leaf,
//     forcing GP-based winners to be evaluated before the depth's scan
//     can continue.
//  3. Bounded look-ahead pruning: a virtual expansion of each selection
//     that cannot be shown to reach a later selection's threshold is
//     dropped.
//  4. Commit: surviving selections are split three ways and their outer
//     children appended to the surrogate as new GP-based samples.
//
// # Configuration
//
// Config carries every tunable this package exposes: the exploration
// schedule (BetaSchedule or ConstSchedule),
// the retrain cadence constant UPC, the evaluation budget NMax, and a
// Hooks bundle of synchronous observer callbacks (PostInitialise,
// PostIteration, PostUpdate, PreFinalise) for progress monitoring.
//
//	cfg := gpso.DefaultConfig(dim)
//	cfg.NMax = 200
//	cfg.Hooks.PostIteration = func(u gpso.IterationUpdate) error {
//	    log.Printf("iter=%d lb=%f", u.Iteration, u.LB)
//	    return nil
//	}
//	result, err := gpso.Run(objective, domain, cfg)
//
// # Persistence
//
// Checkpoint captures the Optimizer's full state (surrogate rows,
// trained hyperparameters, partition tree, iteration log) into a
// versioned, self-describing YAML document via Save/Load, and Resume
// continues a run from a restored Checkpoint under a (possibly raised)
// NMax budget.
//
// # Errors
//
// Every error returned by this package is an *Error tagged with one of
// four kinds (ErrConfig, ErrNumerical, ErrExhausted, ErrObserver);
// callers should inspect it with IsKind rather than string-matching.
package gpso
