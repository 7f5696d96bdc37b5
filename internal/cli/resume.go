package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gpso/gpso"
	"github.com/gpso/gpso/bench"
)

var (
	resumeObjective string
	resumeDim       int
	resumeLower     float64
	resumeUpper     float64
	resumeNMax      int
	resumeSave      string
)

var resumeCmd = &cobra.Command{
	Use:   "resume <checkpoint.yaml>",
	Short: "Continue a checkpointed GPSO run under a (possibly raised) budget",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ck, err := gpso.Load(args[0])
		if err != nil {
			logrus.Fatalf("loading checkpoint: %v", err)
		}

		objective, ok := bench.Registry[resumeObjective]
		if !ok {
			logrus.Fatalf("unknown benchmark %q (available: sphere, sinusoid, rastrigin)", resumeObjective)
		}

		lower := make([]float64, resumeDim)
		upper := make([]float64, resumeDim)
		for i := range lower {
			lower[i] = resumeLower
			upper[i] = resumeUpper
		}
		domain := gpso.Domain{Lower: lower, Upper: upper}

		cfg := gpso.DefaultConfig(resumeDim)
		cfg.NMax = resumeNMax

		objFn := func(x []float64) float64 { return objective(x) }

		if resumeSave == "" {
			result, err := gpso.Resume(ck, objFn, domain, cfg)
			if err != nil {
				logrus.Fatalf("gpso resume failed: %v", err)
			}
			fmt.Printf("best: x=%v f=%.6f (%d samples evaluated)\n", result.Solution.X, result.Solution.F, len(result.Samples))
			return
		}

		result, ck2, err := gpso.ResumeCheckpointed(ck, objFn, domain, cfg)
		if err != nil {
			logrus.Fatalf("gpso resume failed: %v", err)
		}
		if err := gpso.Save(ck2, resumeSave); err != nil {
			logrus.Fatalf("saving checkpoint: %v", err)
		}
		fmt.Printf("best: x=%v f=%.6f (%d samples evaluated)\n", result.Solution.X, result.Solution.F, len(result.Samples))
		fmt.Printf("checkpoint written to %s\n", resumeSave)
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeObjective, "objective", "sphere", "benchmark objective the checkpoint was produced against")
	resumeCmd.Flags().IntVar(&resumeDim, "dim", 2, "objective dimensionality (must match the checkpoint's domain)")
	resumeCmd.Flags().Float64Var(&resumeLower, "lower", -5, "lower bound on every axis")
	resumeCmd.Flags().Float64Var(&resumeUpper, "upper", 5, "upper bound on every axis")
	resumeCmd.Flags().IntVar(&resumeNMax, "nmax", 200, "raised evaluation budget to resume toward")
	resumeCmd.Flags().StringVar(&resumeSave, "save", "", "checkpoint path to write after the resumed run completes")
}
