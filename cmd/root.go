// Package cmd implements the command line interface for running
// traffic-signal control experiments.
package cmd

import "github.com/spf13/cobra"

// RootCommand returns the top-level signalrl command
func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signalrl",
		Short: "Learned traffic-signal control with a double deep Q-network",
	}

	cmd.AddCommand(
		TrainCommand(),
		EvaluateCommand(),
	)

	return cmd
}
