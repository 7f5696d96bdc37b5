package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gpso/gpso"
	"github.com/gpso/gpso/bench"
)

var (
	benchDim      int
	benchLower    float64
	benchUpper    float64
	benchNMax     int
	benchVarsigma float64
	benchEta      float64
	benchVerbose  bool
	benchSave     string
)

var benchCmd = &cobra.Command{
	Use:   "bench [sphere|sinusoid|rastrigin]",
	Short: "Run GPSO against a built-in benchmark objective",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		objective, ok := bench.Registry[name]
		if !ok {
			logrus.Fatalf("unknown benchmark %q (available: sphere, sinusoid, rastrigin)", name)
		}

		lower := make([]float64, benchDim)
		upper := make([]float64, benchDim)
		for i := range lower {
			lower[i] = benchLower
			upper[i] = benchUpper
		}
		domain := gpso.Domain{Lower: lower, Upper: upper}

		cfg := gpso.DefaultConfig(benchDim)
		cfg.NMax = benchNMax
		cfg.Verbose = benchVerbose
		if benchVarsigma != 0 {
			cfg.Varsigma = benchVarsigma
		} else {
			cfg.Eta = benchEta
		}
		logger := logrus.New()
		logger.SetLevel(logrus.GetLevel())
		if benchVerbose && !logger.IsLevelEnabled(logrus.DebugLevel) {
			logger.SetLevel(logrus.DebugLevel)
		}
		cfg.Logger = logger

		objFn := func(x []float64) float64 { return objective(x) }

		if benchSave == "" {
			result, err := gpso.Run(objFn, domain, cfg)
			if err != nil {
				logrus.Fatalf("gpso run failed: %v", err)
			}
			fmt.Printf("best: x=%v f=%.6f (%d samples evaluated)\n", result.Solution.X, result.Solution.F, len(result.Samples))
			return
		}

		result, ck, err := gpso.RunCheckpointed(objFn, domain, cfg)
		if err != nil {
			logrus.Fatalf("gpso run failed: %v", err)
		}
		if err := gpso.Save(ck, benchSave); err != nil {
			logrus.Fatalf("saving checkpoint: %v", err)
		}
		fmt.Printf("best: x=%v f=%.6f (%d samples evaluated)\n", result.Solution.X, result.Solution.F, len(result.Samples))
		fmt.Printf("checkpoint written to %s\n", benchSave)
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchDim, "dim", 2, "objective dimensionality")
	benchCmd.Flags().Float64Var(&benchLower, "lower", -5, "lower bound on every axis")
	benchCmd.Flags().Float64Var(&benchUpper, "upper", 5, "upper bound on every axis")
	benchCmd.Flags().IntVar(&benchNMax, "nmax", 100, "evaluation budget")
	benchCmd.Flags().Float64Var(&benchVarsigma, "varsigma", 0, "fixed exploration constant (0 selects the eta-based schedule)")
	benchCmd.Flags().Float64Var(&benchEta, "eta", 0.05, "probability that UCB <= f, feeding the beta schedule")
	benchCmd.Flags().BoolVar(&benchVerbose, "verbose", false, "log one debug line per iteration")
	benchCmd.Flags().StringVar(&benchSave, "save", "", "checkpoint path to write after the run completes")
}
