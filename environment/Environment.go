// Package environment outlines the interface needed to implement
// concrete episodic environments
package environment

import "gonum.org/v1/gonum/mat"

// Environment implements a simulated episodic environment with a
// discrete action space. An Environment is stateful: Start begins an
// episode with a freshly randomized scenario, Step advances the
// simulation by one action, and Stop ends the episode and finalizes
// any per-episode artifacts (e.g. the vehicle trip file used to
// compute delay statistics).
//
// A Step call blocks until the simulated transition completes; no
// timeout is enforced. Environment failures propagate to the caller
// uncaught, since a corrupted simulation state cannot be safely
// resumed.
type Environment interface {
	// Start begins a new episode with a fresh randomized scenario.
	// Per-episode artifacts are written under outputDir, keyed by
	// evalLabel; an empty evalLabel selects the default label.
	Start(outputDir, evalLabel string) error

	// Step advances the simulation with the given action, returning
	// the state the action was taken in, the reward received, the
	// state transitioned to, and whether the episode terminated
	// naturally on this step.
	Step(action int) (state mat.Vector, reward float64,
		nextState mat.Vector, done bool, err error)

	// Stop ends the current episode and writes its artifacts
	Stop() error

	// State returns the current state observation
	State() mat.Vector

	// Actions returns the size of the discrete action space
	Actions() int

	// Features returns the length of state observation vectors
	Features() int

	// RunFixed runs one full episode under the environment's built-in
	// fixed (non-learned) control program on the same scenario setup
	// as the most recent Start, for side-by-side comparison. It
	// returns the total reward, episode length, and mean vehicle
	// delay of the fixed rollout.
	RunFixed(outputDir, evalLabel string) (totalReward float64,
		length int, meanDelay float64, err error)
}
