package network

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

func newTestMLP(t *testing.T) *MLP {
	t.Helper()
	m, err := NewMLP(4, 2, []int{8}, []bool{true},
		[]*Activation{ReLU()}, G.Zeroes())
	require.NoError(t, err)
	return m
}

func TestNewMLPValidation(t *testing.T) {
	_, err := NewMLP(0, 2, nil, nil, nil, G.Zeroes())
	assert.Error(t, err)

	_, err = NewMLP(4, 2, []int{8}, []bool{true}, nil, G.Zeroes())
	assert.Error(t, err)

	_, err = NewMLP(4, 2, []int{8}, nil, []*Activation{ReLU()},
		G.Zeroes())
	assert.Error(t, err)
}

func TestMLPShapes(t *testing.T) {
	m := newTestMLP(t)
	assert.Equal(t, 4, m.Features())
	assert.Equal(t, 2, m.Outputs())

	// Hidden weights, hidden bias, output weights, output bias
	weights := m.Weights()
	require.Len(t, weights, 4)
	assert.Equal(t, []int{4, 8}, []int(weights[0].Shape()))
	assert.Equal(t, []int{8}, []int(weights[1].Shape()))
	assert.Equal(t, []int{8, 2}, []int(weights[2].Shape()))
	assert.Equal(t, []int{2}, []int(weights[3].Shape()))
}

func TestPredictShapeAndZeroInit(t *testing.T) {
	m := newTestMLP(t)

	states := mat.NewDense(3, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	})
	pred, err := m.Predict(states)
	require.NoError(t, err)

	rows, cols := pred.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)

	// Zero-initialized weights predict zero everywhere
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			assert.Zero(t, pred.At(i, j))
		}
	}

	_, err = m.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestSetWeightsTransfersBetweenCompatibleNetworks(t *testing.T) {
	src, err := NewMLP(4, 2, []int{8}, []bool{true},
		[]*Activation{ReLU()}, G.Uniform(-1, 1))
	require.NoError(t, err)
	dst := newTestMLP(t)

	require.NoError(t, dst.SetWeights(src.Weights()))
	for i, w := range dst.Weights() {
		assert.True(t, w.Eq(src.Weights()[i]), "weight %v", i)
	}
}

func TestSetWeightsRejectsShapeMismatch(t *testing.T) {
	m := newTestMLP(t)

	other, err := NewMLP(4, 2, []int{16}, []bool{true},
		[]*Activation{ReLU()}, G.Zeroes())
	require.NoError(t, err)
	assert.Error(t, m.SetWeights(other.Weights()))

	assert.Error(t, m.SetWeights(m.Weights()[:2]))
}

func TestWeightsReturnsDeepCopy(t *testing.T) {
	m := newTestMLP(t)

	weights := m.Weights()
	require.NoError(t, weights[0].SetAt(99.0, 0, 0))

	fresh := m.Weights()
	value, err := fresh[0].At(0, 0)
	require.NoError(t, err)
	assert.Zero(t, value)
}

func TestSaveLoadWeightsRoundTrip(t *testing.T) {
	src, err := NewMLP(4, 2, []int{8}, []bool{true},
		[]*Activation{TanH()}, G.Uniform(-1, 1))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "checkpoint")
	require.NoError(t, src.Save(path))

	dst := newTestMLP(t)
	require.NoError(t, dst.LoadWeights(path))
	for i, w := range dst.Weights() {
		assert.True(t, w.Eq(src.Weights()[i]), "weight %v", i)
	}
}

func TestFitRequiresCompile(t *testing.T) {
	m := newTestMLP(t)
	_, err := m.Fit(mat.NewDense(1, 4, nil), mat.NewDense(1, 2, nil), 1, 1)
	assert.Error(t, err)
}

func TestActivationJSONRoundTrip(t *testing.T) {
	for _, activation := range []*Activation{ReLU(), TanH(), Identity()} {
		data, err := json.Marshal(activation)
		require.NoError(t, err)

		var decoded Activation
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, activation.String(), decoded.String())
	}
}

func TestActivationUnmarshalRejectsUnknown(t *testing.T) {
	var decoded Activation
	assert.Error(t, json.Unmarshal([]byte(`"swish"`), &decoded))
}
