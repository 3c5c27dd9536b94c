package cmd

import (
	"github.com/aunum/log"
	"github.com/spf13/cobra"

	"github.com/gotraffic/signalrl/experiment"
)

// TrainCommand returns the command that trains an agent from an
// experiment configuration file
func TrainCommand() *cobra.Command {
	var configPath string
	var episodes int
	var outputDir string
	var seed uint64

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a signal-control agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := experiment.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if episodes > 0 {
				config.NumEpisodes = episodes
			}
			if outputDir != "" {
				config.Agent.OutputDir = outputDir
			}
			if cmd.Flags().Changed("seed") {
				config.Agent.Seed = seed
			}

			exp, err := experiment.New(config)
			if err != nil {
				return err
			}

			log.Infof("filling replay buffer with %v transitions",
				config.Agent.NumBurnIn)
			stats, err := exp.Train()
			if err != nil {
				return err
			}

			if err := exp.Agent.Save(); err != nil {
				return err
			}
			log.Successf("trained for %v episodes (%v records)",
				config.NumEpisodes, len(stats))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.json",
		"path to the experiment configuration file")
	cmd.Flags().IntVarP(&episodes, "episodes", "n", 0,
		"override the configured number of training episodes")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "",
		"override the configured output directory")
	cmd.Flags().Uint64Var(&seed, "seed", 0,
		"override the configured random seed")

	return cmd
}
