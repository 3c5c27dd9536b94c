package timestep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewDeepCopiesStateVectors(t *testing.T) {
	state := mat.NewVecDense(2, []float64{1, 2})
	next := mat.NewVecDense(2, []float64{3, 4})

	transition := New(state, 1, 0.5, next, true)

	state.SetVec(0, 99)
	next.SetVec(0, 99)

	assert.Equal(t, 1.0, transition.State.AtVec(0))
	assert.Equal(t, 3.0, transition.NextState.AtVec(0))
	assert.Equal(t, 2, transition.Features())
	assert.Equal(t, 1, transition.Action)
	assert.Equal(t, 0.5, transition.Reward)
	assert.True(t, transition.Done)
}
