package ddqn

import (
	"fmt"

	"github.com/gotraffic/signalrl/network"
	"github.com/gotraffic/signalrl/solver"
)

// DefaultSaveAfter is the model checkpoint cadence in global steps
// used when the Config leaves SaveAfter unset
const DefaultSaveAfter = 10_000

// Config implements a configuration for a DDQN agent
type Config struct {
	// Gamma is the discount factor of the double-Q target
	Gamma float64

	// TargetUpdateFreq is the cadence, in global steps, at which the
	// online network's weights are hard-copied into the target network
	TargetUpdateFreq int

	// TrainFreq is the cadence, in global steps, at which a network
	// update is run during training
	TrainFreq int

	// NumBurnIn is the number of transitions the replay buffer is
	// filled with before training begins
	NumBurnIn int

	// BatchSize is the number of transitions per sampled batch, and
	// the batch size both networks are compiled with
	BatchSize int

	// MaxEpLen caps episode length. Episodes hitting the cap are
	// truncated, which is reported, not an error.
	MaxEpLen int

	// SaveAfter is the checkpoint cadence in global steps. Zero
	// selects DefaultSaveAfter.
	SaveAfter int

	// Solver and Loss compile both networks identically
	Solver *solver.Solver
	Loss   network.Loss

	// OutputDir is where episode artifacts, telemetry, and model
	// checkpoints are written
	OutputDir string

	// ExperimentID distinguishes this run's checkpoint files
	ExperimentID int

	// Monitoring enables telemetry recording. EpisodeRecording
	// additionally enables within-episode (per-step) records, and
	// ModelCheckpoint enables periodic weight checkpoints.
	Monitoring       bool
	EpisodeRecording bool
	ModelCheckpoint  bool

	// Seed seeds the agent's action-selection policies
	Seed uint64
}

// Validate ensures the Config describes a runnable agent
func (c Config) Validate() error {
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma must be in (0, 1] \n\thave(%v)", c.Gamma)
	}
	if c.TargetUpdateFreq < 1 {
		return fmt.Errorf("target update frequency must be > 0 "+
			"\n\thave(%v)", c.TargetUpdateFreq)
	}
	if c.TrainFreq < 1 {
		return fmt.Errorf("train frequency must be > 0 \n\thave(%v)",
			c.TrainFreq)
	}
	if c.NumBurnIn < 1 {
		return fmt.Errorf("burn-in transition count must be > 0 "+
			"\n\thave(%v)", c.NumBurnIn)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be > 0 \n\thave(%v)",
			c.BatchSize)
	}
	if c.BatchSize > c.NumBurnIn {
		return fmt.Errorf("batch size cannot exceed the burn-in count"+
			"\n\tbatch(%v)\n\tburnIn(%v)", c.BatchSize, c.NumBurnIn)
	}
	if c.MaxEpLen < 1 {
		return fmt.Errorf("max episode length must be > 0 \n\thave(%v)",
			c.MaxEpLen)
	}
	if c.SaveAfter < 0 {
		return fmt.Errorf("checkpoint cadence cannot be negative "+
			"\n\thave(%v)", c.SaveAfter)
	}
	if c.Solver == nil {
		return fmt.Errorf("no solver given")
	}
	if c.Loss != network.MSE {
		return fmt.Errorf("no such loss %q", c.Loss)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("no output directory given")
	}
	return nil
}

// saveAfter returns the checkpoint cadence with the default applied
func (c Config) saveAfter() int {
	if c.SaveAfter == 0 {
		return DefaultSaveAfter
	}
	return c.SaveAfter
}
