// Package cli implements gpso's command-line front end: a cobra root
// command wrapping the bench and resume subcommands, following
// inference-sim-inference-sim's cmd/root.go layout (package-level flag
// vars, one subcommand per sibling file, Execute() as the sole export).
package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "gpso",
	Short: "GP-based Surrogate Optimization",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(resumeCmd)
}
