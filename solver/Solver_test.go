package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdamJSONRoundTrip(t *testing.T) {
	sol, err := NewAdam(0.001, 1e-8, 0.9, 0.999, 32)
	require.NoError(t, err)

	data, err := json.Marshal(sol)
	require.NoError(t, err)

	var decoded Solver
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, Adam, decoded.Type)
	assert.Equal(t, sol.Config, decoded.Config)
	assert.NotNil(t, decoded.Solver)
}

func TestVanillaJSONRoundTrip(t *testing.T) {
	sol, err := NewVanilla(0.05, 32)
	require.NoError(t, err)

	data, err := json.Marshal(sol)
	require.NoError(t, err)

	var decoded Solver
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, Vanilla, decoded.Type)
	assert.Equal(t, sol.Config, decoded.Config)
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	var decoded Solver
	err := json.Unmarshal([]byte(`{"Type": "Momentum", "Config": {}}`),
		&decoded)
	assert.Error(t, err)
}
