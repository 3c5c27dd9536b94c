// Package experiment assembles full training and evaluation runs from
// a single JSON-serializable configuration: the environment, the two
// value networks, the replay buffer, the agent, and the telemetry
// sink.
package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gotraffic/signalrl/agent/ddqn"
	"github.com/gotraffic/signalrl/environment/intersection"
	"github.com/gotraffic/signalrl/expreplay"
	"github.com/gotraffic/signalrl/initwfn"
	"github.com/gotraffic/signalrl/network"
	"github.com/gotraffic/signalrl/policy"
	"github.com/gotraffic/signalrl/tracker"
)

// EnvironmentConfig configures the simulated intersection
type EnvironmentConfig struct {
	// Horizon is the number of steps over which vehicles arrive
	Horizon int

	// ArrivalRate is the expected vehicle arrivals per approach per
	// step before per-scenario randomization
	ArrivalRate float64
}

// NetworkConfig configures the two structurally identical value
// networks
type NetworkConfig struct {
	HiddenSizes []int
	Biases      []bool
	Activations []*network.Activation
	Init        *initwfn.InitWFn
}

// ReplayConfig configures the experience replay buffer
type ReplayConfig struct {
	MinCapacity int
	MaxCapacity int
}

// PolicyConfig configures the training action-selection policy
type PolicyConfig struct {
	Type   policy.Type
	Config policy.Config
}

// Config is the full description of one experiment run. It is JSON
// round-trippable, including the solver, weight initializer, and
// activation choices, so a run is reproducible from its config file
// alone.
type Config struct {
	Environment EnvironmentConfig
	Network     NetworkConfig
	Replay      ReplayConfig
	Agent       ddqn.Config
	Policy      PolicyConfig

	// NumEpisodes is the number of training episodes to run
	NumEpisodes int

	// EvalFixed additionally runs the fixed control program on each
	// training episode's scenario for side-by-side comparison
	EvalFixed bool
}

// LoadConfig reads a Config from the JSON file at path
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("loadconfig: could not read config "+
			"file: %v", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("loadconfig: could not decode config "+
			"file: %v", err)
	}
	return config, nil
}

// Experiment is one assembled run: a constructed agent together with
// the run description it was built from
type Experiment struct {
	Agent  *ddqn.DDQN
	Config Config
}

// New assembles an Experiment from its Config. The agent's telemetry
// sink is a file-backed sink under the run's output directory when
// monitoring is enabled and a no-op sink otherwise.
func New(config Config) (*Experiment, error) {
	env, err := intersection.New(config.Environment.Horizon,
		config.Environment.ArrivalRate, config.Agent.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %v", err)
	}

	if config.Network.Init == nil {
		return nil, fmt.Errorf("new: no weight initializer given")
	}
	online, err := network.NewMLP(env.Features(), env.Actions(),
		config.Network.HiddenSizes, config.Network.Biases,
		config.Network.Activations, config.Network.Init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("new: could not create online network: %v",
			err)
	}
	target, err := network.NewMLP(env.Features(), env.Actions(),
		config.Network.HiddenSizes, config.Network.Biases,
		config.Network.Activations, config.Network.Init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}

	sampler := expreplay.NewUniformSelector(config.Agent.Seed)
	replay, err := expreplay.New(sampler, config.Replay.MinCapacity,
		config.Replay.MaxCapacity, env.Features())
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay buffer: %v",
			err)
	}

	var sink tracker.Sink = tracker.NewNoOp()
	if config.Agent.Monitoring {
		sink = tracker.NewGobSink(filepath.Join(config.Agent.OutputDir,
			fmt.Sprintf("run%d_telemetry.bin", config.Agent.ExperimentID)))
	}

	agent, err := ddqn.New(online, target, replay, env, config.Agent, sink)
	if err != nil {
		return nil, fmt.Errorf("new: could not create agent: %v", err)
	}

	return &Experiment{Agent: agent, Config: config}, nil
}

// Train fills the replay buffer and runs the configured number of
// training episodes, returning the per-episode statistics records
func (e *Experiment) Train() ([]ddqn.EpisodeStats, error) {
	if err := e.Agent.FillReplay(); err != nil {
		return nil, fmt.Errorf("train: %v", err)
	}

	stats, err := e.Agent.Train(e.Config.NumEpisodes, e.Config.Policy.Type,
		e.Config.Policy.Config, e.Config.EvalFixed)
	if err != nil {
		return stats, fmt.Errorf("train: %v", err)
	}
	return stats, nil
}

// Evaluate runs one greedy evaluation rollout plus the fixed-program
// comparison rollout, labeled by evalLabel
func (e *Experiment) Evaluate(evalLabel string) ([]ddqn.EvalTransition,
	float64, float64, error) {
	trace, meanDelay, fixedDelay, err := e.Agent.Evaluate(policy.Greedy,
		policy.Config{}, evalLabel)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
	}
	return trace, meanDelay, fixedDelay, nil
}
