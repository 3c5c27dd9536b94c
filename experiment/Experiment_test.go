package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotraffic/signalrl/initwfn"
	"github.com/gotraffic/signalrl/network"
	"github.com/gotraffic/signalrl/policy"
	"github.com/gotraffic/signalrl/solver"
)

const configJSON = `{
	"Environment": {"Horizon": 100, "ArrivalRate": 0.6},
	"Network": {
		"HiddenSizes": [32, 32],
		"Biases": [true, true],
		"Activations": ["relu", "relu"],
		"Init": {"Type": "GlorotU", "Config": {"Gain": 1.0}}
	},
	"Replay": {"MinCapacity": 32, "MaxCapacity": 10000},
	"Agent": {
		"Gamma": 0.99,
		"TargetUpdateFreq": 500,
		"TrainFreq": 4,
		"NumBurnIn": 200,
		"BatchSize": 32,
		"MaxEpLen": 500,
		"Solver": {
			"Type": "Adam",
			"Config": {
				"StepSize": 0.001,
				"Epsilon": 1e-8,
				"Beta1": 0.9,
				"Beta2": 0.999,
				"Batch": 32
			}
		},
		"Loss": "mse",
		"OutputDir": "out",
		"ExperimentID": 3,
		"Seed": 42
	},
	"Policy": {
		"Type": "linDecEpsGreedy",
		"Config": {"EpsilonStart": 1.0, "EpsilonEnd": 0.05, "DecaySteps": 5000}
	},
	"NumEpisodes": 10,
	"EvalFixed": true
}`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(configJSON), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, 100, config.Environment.Horizon)
	assert.Equal(t, 0.6, config.Environment.ArrivalRate)

	assert.Equal(t, []int{32, 32}, config.Network.HiddenSizes)
	require.Len(t, config.Network.Activations, 2)
	assert.Equal(t, "relu", config.Network.Activations[0].String())
	require.NotNil(t, config.Network.Init)
	assert.Equal(t, initwfn.GlorotU, config.Network.Init.Type)

	require.NotNil(t, config.Agent.Solver)
	assert.Equal(t, solver.Adam, config.Agent.Solver.Type)
	assert.Equal(t, network.MSE, config.Agent.Loss)
	assert.Equal(t, 0.99, config.Agent.Gamma)

	assert.Equal(t, policy.LinDecEpsGreedy, config.Policy.Type)
	assert.Equal(t, 5000, config.Policy.Config.DecaySteps)
	assert.Equal(t, 10, config.NumEpisodes)
	assert.True(t, config.EvalFixed)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewAssemblesExperiment(t *testing.T) {
	config, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)
	config.Agent.OutputDir = t.TempDir()

	exp, err := New(config)
	require.NoError(t, err)
	require.NotNil(t, exp.Agent)
}

func TestNewRequiresInitializer(t *testing.T) {
	config, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)
	config.Network.Init = nil

	_, err = New(config)
	assert.Error(t, err)
}
