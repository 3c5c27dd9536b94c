package cmd

import (
	"github.com/aunum/log"
	"github.com/spf13/cobra"

	"github.com/gotraffic/signalrl/experiment"
)

// EvaluateCommand returns the command that evaluates a trained agent
// from a checkpoint
func EvaluateCommand() *cobra.Command {
	var configPath string
	var checkpoint string
	var evalLabel string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a trained signal-control agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := experiment.LoadConfig(configPath)
			if err != nil {
				return err
			}

			exp, err := experiment.New(config)
			if err != nil {
				return err
			}
			if checkpoint != "" {
				if err := exp.Agent.Load(checkpoint); err != nil {
					return err
				}
			}

			trace, meanDelay, fixedDelay, err := exp.Evaluate(evalLabel)
			if err != nil {
				return err
			}

			log.Infof("evaluation rollout: %v steps", len(trace))
			log.Infof("mean vehicle delay (learned): %.2f", meanDelay)
			log.Infof("mean vehicle delay (fixed): %.2f", fixedDelay)
			if fixedDelay > 0 && meanDelay >= 0 {
				improvement := 100 * (fixedDelay - meanDelay) / fixedDelay
				log.Successf("delay change vs fixed program: %.1f%%",
					improvement)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.json",
		"path to the experiment configuration file")
	cmd.Flags().StringVarP(&checkpoint, "checkpoint", "k", "",
		"path to a model checkpoint to evaluate")
	cmd.Flags().StringVarP(&evalLabel, "label", "l", "eval",
		"label keying the evaluation trip artifacts")

	return cmd
}
