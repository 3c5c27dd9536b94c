package expreplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gotraffic/signalrl/timestep"
)

// transition builds a transition whose state entries all equal marker,
// so sampled rows can be traced back to their insertion
func transition(features int, marker float64) timestep.Transition {
	state := make([]float64, features)
	next := make([]float64, features)
	for i := range state {
		state[i] = marker
		next[i] = -marker
	}
	return timestep.New(mat.NewVecDense(features, state), int(marker),
		marker, mat.NewVecDense(features, next), false)
}

func TestNewValidation(t *testing.T) {
	sampler := NewUniformSelector(1)

	_, err := New(sampler, 0, 10, 4)
	assert.Error(t, err)

	_, err = New(sampler, 10, 5, 4)
	assert.Error(t, err)

	_, err = New(sampler, 1, 10, 0)
	assert.Error(t, err)
}

func TestAppendRejectsWrongFeatureSize(t *testing.T) {
	buffer, err := New(NewUniformSelector(1), 1, 4, 4)
	require.NoError(t, err)

	err = buffer.Append(transition(3, 1))
	assert.Error(t, err)
	assert.Equal(t, 0, buffer.Capacity())
}

func TestSampleEmptyBuffer(t *testing.T) {
	buffer, err := New(NewUniformSelector(1), 1, 4, 4)
	require.NoError(t, err)

	_, _, _, _, _, err = buffer.Sample(1)
	assert.True(t, IsEmptyBuffer(err))
}

func TestSampleBelowMinCapacity(t *testing.T) {
	buffer, err := New(NewUniformSelector(1), 3, 8, 4)
	require.NoError(t, err)

	require.NoError(t, buffer.Append(transition(4, 1)))
	_, _, _, _, _, err = buffer.Sample(1)
	assert.True(t, IsInsufficientSamples(err))
	assert.False(t, IsEmptyBuffer(err))

	require.NoError(t, buffer.Append(transition(4, 2)))
	require.NoError(t, buffer.Append(transition(4, 3)))
	_, _, _, _, _, err = buffer.Sample(1)
	assert.NoError(t, err)
}

func TestSampleAlignsBatchFields(t *testing.T) {
	buffer, err := New(NewUniformSelector(14), 1, 8, 2)
	require.NoError(t, err)
	for i := 1; i <= 4; i++ {
		require.NoError(t, buffer.Append(transition(2, float64(i))))
	}

	states, actions, rewards, nextStates, dones, err := buffer.Sample(6)
	require.NoError(t, err)

	rows, cols := states.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, 2, cols)
	require.Len(t, actions, 6)
	require.Len(t, rewards, 6)
	require.Len(t, dones, 6)

	// Each sampled row must carry the fields it was inserted with
	for i := 0; i < rows; i++ {
		marker := states.At(i, 0)
		assert.Equal(t, marker, states.At(i, 1))
		assert.Equal(t, -marker, nextStates.At(i, 0))
		assert.Equal(t, int(marker), actions[i])
		assert.Equal(t, marker, rewards[i])
		assert.False(t, dones[i])
	}
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	buffer, err := New(NewUniformSelector(1), 1, 3, 2)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, buffer.Append(transition(2, float64(i))))
	}
	assert.Equal(t, 3, buffer.Capacity())
	assert.Equal(t, 3, buffer.MaxCapacity())

	// Transitions 1 and 2 were evicted; only 3, 4, 5 remain
	states, _, _, _, _, err := buffer.Sample(64)
	require.NoError(t, err)
	rows, _ := states.Dims()
	for i := 0; i < rows; i++ {
		assert.GreaterOrEqual(t, states.At(i, 0), 3.0)
	}
}

func TestAppendDeepCopiesState(t *testing.T) {
	buffer, err := New(NewUniformSelector(1), 1, 4, 2)
	require.NoError(t, err)

	state := mat.NewVecDense(2, []float64{1, 1})
	next := mat.NewVecDense(2, []float64{2, 2})
	require.NoError(t, buffer.Append(timestep.New(state, 0, 0, next,
		false)))

	// Mutating the caller's vector must not alter the stored transition
	state.SetVec(0, 99)
	states, _, _, _, _, err := buffer.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, states.At(0, 0))
}
